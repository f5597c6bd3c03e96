package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by update operations that matched no row.
var ErrNotFound = errors.New("not found")

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			first_name          TEXT NOT NULL,
			last_name           TEXT NOT NULL,
			email               TEXT NOT NULL UNIQUE,
			password            TEXT NOT NULL,
			mobile_number       TEXT NOT NULL DEFAULT '',
			gender              TEXT NOT NULL DEFAULT '',
			date_of_birth       TEXT NOT NULL DEFAULT '',
			address             JSONB,
			role                TEXT NOT NULL DEFAULT 'USER',
			contract_date       TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL DEFAULT 'ACTIVE',
			billing_customer_id TEXT,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS contracts (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			type              TEXT NOT NULL,
			file_object       TEXT NOT NULL,
			file_path         TEXT NOT NULL,
			file_original     TEXT NOT NULL,
			file_content_type TEXT NOT NULL,
			file_size         BIGINT NOT NULL DEFAULT 0,
			price_minor_units BIGINT,
			billing_interval  TEXT,
			interval_count    BIGINT,
			product_id        TEXT,
			price_id          TEXT,
			signing_url       TEXT,
			status            TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_contracts_user_id ON contracts(user_id);
		CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
