package store

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS chat_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresKV stores values in a single JSONB key-value table.
type PostgresKV struct {
	pool *pgxpool.Pool

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewPostgresKV creates a connection pool for databaseURL. A non-empty
// token is used as the connection password. Connections open lazily.
func NewPostgresKV(ctx context.Context, databaseURL, token string) (*PostgresKV, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.ConnConfig.Password = token
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresKV{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresKV) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresKV) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ensureSchema creates the table on first successful use.
func (s *PostgresKV) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}
	if _, err := s.pool.Exec(ctx, kvSchema); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

// Get returns the raw JSON value at key.
func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM chat_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts the value at key. value must be valid JSON.
func (s *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}
