package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresExecer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PostgresExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Applied files are recorded in schema_migrations and skipped on later runs.
func RunPostgresMigrations(ctx context.Context, db PostgresExecer) error {
	files, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name        TEXT PRIMARY KEY,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, file := range files {
		var applied bool
		err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, file.Name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file.Name, err)
		}
		if applied {
			continue
		}

		if _, err := db.Exec(ctx, file.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", file.Name, err)
		}
		if _, err := db.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, file.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", file.Name, err)
		}
	}

	return nil
}
