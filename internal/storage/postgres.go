package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
)

// PostgresStore persists mentions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and runs migrations.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS mentions (
			id UUID PRIMARY KEY,
			observed_at TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL,
			channel TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			body VARCHAR(2000) NOT NULL,
			sentiment DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_observed_at ON mentions (observed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_source ON mentions (source)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed")
	return nil
}

// Append inserts one mention. Safe for concurrent use from all consumers.
func (s *PostgresStore) Append(ctx context.Context, m models.Mention) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mentions (id, observed_at, source, channel, title, body, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.ObservedAt, string(m.Source), m.Channel, m.Title, m.Body, m.Sentiment)

	if err != nil {
		return fmt.Errorf("failed to insert mention: %w", err)
	}
	return nil
}

// QueryMentions implements the recency/dedup read contract. The inner
// DISTINCT ON keeps only the newest row per distinct body; the outer query
// orders the survivors newest first and applies the cap.
func (s *PostgresStore) QueryMentions(ctx context.Context, companyName, tickerSymbol string) ([]models.Mention, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, observed_at, source, channel, title, body, sentiment FROM (
			SELECT DISTINCT ON (body) id, observed_at, source, channel, title, body, sentiment
			FROM mentions
			WHERE body ILIKE '%' || $1 || '%'
			   OR body LIKE '%$' || $2 || ' %'
			ORDER BY body, observed_at DESC
		) deduped
		ORDER BY observed_at DESC
		LIMIT $3
	`, companyName, tickerSymbol, QueryLimit)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

// MentionsSince returns all mentions observed at or after t, oldest first.
func (s *PostgresStore) MentionsSince(ctx context.Context, t time.Time) ([]models.Mention, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, observed_at, source, channel, title, body, sentiment
		FROM mentions
		WHERE observed_at >= $1
		ORDER BY observed_at ASC
	`, t)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

// IngestStats counts mentions per source observed at or after t.
func (s *PostgresStore) IngestStats(ctx context.Context, t time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, COUNT(*)
		FROM mentions
		WHERE observed_at >= $1
		GROUP BY source
	`, t)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return stats, nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMentions(rows pgxRows) ([]models.Mention, error) {
	mentions := []models.Mention{}
	for rows.Next() {
		var m models.Mention
		var source string
		if err := rows.Scan(&m.ID, &m.ObservedAt, &source, &m.Channel, &m.Title, &m.Body, &m.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to scan mention row: %w", err)
		}
		m.Source = models.Source(source)
		mentions = append(mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return mentions, nil
}
