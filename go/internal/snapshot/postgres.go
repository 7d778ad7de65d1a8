package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS draft_overlay_kv (
    namespace  TEXT        NOT NULL,
    key        TEXT        NOT NULL,
    value      JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (namespace, key)
)`

const getSQL = `SELECT value FROM draft_overlay_kv WHERE namespace = $1 AND key = $2`

const upsertSQL = `
INSERT INTO draft_overlay_kv (namespace, key, value, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (namespace, key) DO UPDATE
SET value = EXCLUDED.value, updated_at = now()`

const deleteSQL = `DELETE FROM draft_overlay_kv WHERE namespace = $1 AND key = $2`

// PostgresBackend stores JSON values in a single key-value table.
type PostgresBackend struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresBackend wraps a pool. Call EnsureSchema once before use.
func NewPostgresBackend(pool *pgxpool.Pool, namespace string) *PostgresBackend {
	return &PostgresBackend{pool: pool, namespace: namespace}
}

// EnsureSchema creates the backing table if it doesn't exist.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create draft_overlay_kv: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, getSQL, p.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key string, value []byte) error {
	if _, err := p.pool.Exec(ctx, upsertSQL, p.namespace, key, string(value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, deleteSQL, p.namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
