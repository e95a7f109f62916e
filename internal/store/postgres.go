package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/metrics"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS config_documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the document in a config_documents row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Backend returns "postgres".
func (s *PostgresStore) Backend() string { return "postgres" }

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save upserts the document.
func (s *PostgresStore) Save(ctx context.Context, rec *models.ConfigRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO config_documents (name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, documentName, string(data))
	return err
}

// Load returns the document or nil when no row exists.
func (s *PostgresStore) Load(ctx context.Context) (*models.ConfigRecord, error) {
	start := time.Now()
	var body string
	err := s.pool.QueryRow(ctx, `
		SELECT body::text FROM config_documents WHERE name = $1
	`, documentName).Scan(&body)
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord([]byte(body))
}
