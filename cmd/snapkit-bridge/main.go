// Package main is the entrypoint for the snapkit-bridge service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/snapkit-bridge/internal/config"
	"github.com/morezero/snapkit-bridge/internal/server"
	"github.com/morezero/snapkit-bridge/pkg/db"
)

const usage = `Usage: snapkit-bridge [command]
       snapkit-bridge serve              Start the bridge (COMMS channel, provider, HTTP health).
       snapkit-bridge migrate up         Run ledger migrations.
       snapkit-bridge migrate status     Show migration status.
       snapkit-bridge ensure-db [name]   Create database if missing (default: the DATABASE_URL database).
       snapkit-bridge clear              Truncate the share and verification ledger; schema is preserved.

Commands:
  serve            (default) Start the bridge on <BRIDGE_SUBJECT_PREFIX>.<BRIDGE_CHANNEL>.
  migrate up       Run database migrations only.
  migrate status   List applied and pending migrations.
  ensure-db [name] Create the database (e.g. snapkit_test) on the DATABASE_URL host, with pgcrypto.
  clear            Truncate ledger data.

Environment: COMMS_URL, PROVIDER (sandbox|remote), BRIDGE_CHANNEL, SDK_VERSION_CONSTRAINT,
DATABASE_URL (optional for serve, required for migrate/clear/ensure-db), MIGRATION_PATH, HTTP_PORT.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("snapkit-bridge migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("snapkit-bridge migrate up: %v", err)
			}
		case "status":
			if err := withPool(runMigrateStatus); err != nil {
				log.Fatalf("snapkit-bridge migrate status: %v", err)
			}
		default:
			log.Fatalf("snapkit-bridge migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := withPool(runClear); err != nil {
			log.Fatalf("snapkit-bridge clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := ""
		if len(args) > 1 {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("snapkit-bridge ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("snapkit-bridge: %v", err)
	}
}

// withPool loads DB config, opens a pool and hands it to fn.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	states, err := db.MigrationStatus(ctx, pool, migrations)
	if err != nil {
		return err
	}
	pending := 0
	for _, st := range states {
		if st.AppliedAt == nil {
			pending++
			fmt.Printf("  pending  %s\n", st.Name)
			continue
		}
		fmt.Printf("  applied  %s  (%s)\n", st.Name, st.AppliedAt.Format(time.RFC3339))
	}
	if pending > 0 {
		fmt.Printf("%d pending migration(s) in %s; run 'snapkit-bridge migrate up'\n", pending, cfg.MigrationPath)
	} else {
		fmt.Printf("Migration status: up to date (%d applied)\n", len(states))
	}
	return nil
}

func runClear(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
	if err := db.ClearLedger(ctx, pool); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	if dbName == "" {
		if err := db.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		fmt.Println("Database is ready.")
		return nil
	}
	if err := db.EnsureDatabaseNamed(ctx, cfg.DatabaseURL, dbName); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}
