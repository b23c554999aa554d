package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loan-assistant/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// ConnectPostgres opens and pings the audit database. A nil client with a nil
// error means no host is configured.
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresClient, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	pg, err := NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pg, nil
}

// Schema creates the tables used by the decision audit.
const Schema = `
CREATE TABLE IF NOT EXISTS loan_decisions (
	id            UUID PRIMARY KEY,
	session_id    TEXT NOT NULL,
	customer_id   TEXT,
	amount        BIGINT NOT NULL,
	tenure_months INT NOT NULL,
	salary        BIGINT NOT NULL,
	existing_emi  BIGINT NOT NULL,
	approved      BOOLEAN NOT NULL,
	reason        TEXT NOT NULL,
	letter_path   TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// Migrate applies Schema. Statements are idempotent.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c != nil && c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
