package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearLedger removes every recorded share and verification. The schema is kept.
func ClearLedger(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing ledger tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE media_shares, phone_verifications`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Ledger cleared", clearLogPrefix))
	return nil
}
