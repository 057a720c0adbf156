package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ledgerLogPrefix = "db:ledger"

// Ledger records shares and phone verifications made through the sandbox provider.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger over pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// RecordShare inserts a share and returns it with its id and timestamp filled.
func (l *Ledger) RecordShare(ctx context.Context, rec *ShareRecord) (*ShareRecord, error) {
	slog.Debug(fmt.Sprintf("%s - RecordShare host=%s type=%s", ledgerLogPrefix, rec.HostID, rec.MediaType))

	out := *rec
	err := l.pool.QueryRow(ctx,
		`INSERT INTO media_shares (host_id, platform, media_type, path, size_bytes, caption, attachment_url, has_sticker)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created`,
		rec.HostID, rec.Platform, rec.MediaType, rec.Path, rec.SizeBytes, rec.Caption, rec.AttachmentURL, rec.HasSticker,
	).Scan(&out.ID, &out.Created)
	if err != nil {
		return nil, fmt.Errorf("%s - insert share failed: %w", ledgerLogPrefix, err)
	}
	return &out, nil
}

// ListShares returns the most recent shares, newest first. An empty hostID lists every host.
func (l *Ledger) ListShares(ctx context.Context, hostID string, limit int) ([]ShareRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, host_id, platform, media_type, path, size_bytes, caption, attachment_url, has_sticker, created
		 FROM media_shares
		 WHERE ($1 = '' OR host_id = $1)
		 ORDER BY created DESC
		 LIMIT $2`, hostID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list shares failed: %w", ledgerLogPrefix, err)
	}
	defer rows.Close()

	var out []ShareRecord
	for rows.Next() {
		var s ShareRecord
		if err := rows.Scan(&s.ID, &s.HostID, &s.Platform, &s.MediaType, &s.Path, &s.SizeBytes,
			&s.Caption, &s.AttachmentURL, &s.HasSticker, &s.Created); err != nil {
			return nil, fmt.Errorf("%s - scan share failed: %w", ledgerLogPrefix, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordVerification stores a verification. Verifying the same number again
// returns the existing record.
func (l *Ledger) RecordVerification(ctx context.Context, rec *VerificationRecord) (*VerificationRecord, error) {
	slog.Debug(fmt.Sprintf("%s - RecordVerification host=%s region=%s", ledgerLogPrefix, rec.HostID, rec.Region))

	_, err := l.pool.Exec(ctx,
		`INSERT INTO phone_verifications (phone_id, verify_id, host_id, phone_number, region)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (region, phone_number) DO NOTHING`,
		rec.PhoneID, rec.VerifyID, rec.HostID, rec.PhoneNumber, rec.Region)
	if err != nil {
		return nil, fmt.Errorf("%s - insert verification failed: %w", ledgerLogPrefix, err)
	}

	stored, err := l.GetVerification(ctx, rec.PhoneNumber, rec.Region)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%s - verification for %s vanished after insert", ledgerLogPrefix, rec.Region)
	}
	return stored, nil
}

// GetVerification returns the verification for a number, or nil when there is none.
func (l *Ledger) GetVerification(ctx context.Context, phoneNumber, region string) (*VerificationRecord, error) {
	var v VerificationRecord
	err := l.pool.QueryRow(ctx,
		`SELECT phone_id, verify_id, host_id, phone_number, region, created
		 FROM phone_verifications
		 WHERE region = $1 AND phone_number = $2`, region, phoneNumber,
	).Scan(&v.PhoneID, &v.VerifyID, &v.HostID, &v.PhoneNumber, &v.Region, &v.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - get verification failed: %w", ledgerLogPrefix, err)
	}
	return &v, nil
}
