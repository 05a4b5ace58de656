package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores payloads as JSONB rows of a `state` table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the state table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS state (
			bucket TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure state table: %w", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

// Read returns the payload of bucket key.
func (p *PostgresBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := p.pool.QueryRow(ctx, `SELECT payload::text FROM state WHERE bucket = $1`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Write upserts the payload of bucket key.
func (p *PostgresBackend) Write(ctx context.Context, key string, payload []byte) error {
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO state (bucket, payload, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, key, string(payload)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Close closes the pool.
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
