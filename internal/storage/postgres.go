package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pauljones0/offers-bot/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sent_offers (
	sent_on  date        NOT NULL,
	offer_id text        NOT NULL,
	sent_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (sent_on, offer_id)
)`

// pgxConn is the part of *pgxpool.Pool the store uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps all days in one table keyed by (sent_on, offer_id).
type PostgresStore struct {
	db    pgxConn
	close func()
}

// NewPostgres connects, pings and makes sure the table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create sent_offers table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, id string, day models.Day) (bool, error) {
	var found bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sent_offers WHERE sent_on = $1 AND offer_id = $2)`,
		day.Time(), id,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check offer %s for %s: %w", id, day, err)
	}
	return found, nil
}

// Insert relies on the primary key: a conflicting row inserts nothing.
func (s *PostgresStore) Insert(ctx context.Context, rec models.RecencyRecord) error {
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO sent_offers (sent_on, offer_id, sent_at) VALUES ($1, $2, $3) ON CONFLICT (sent_on, offer_id) DO NOTHING`,
		rec.Day.Time(), rec.ID, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert offer %s for %s: %w", rec.ID, rec.Day, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDuplicate
	}
	return nil
}

func (s *PostgresStore) CountDay(ctx context.Context, day models.Day) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM sent_offers WHERE sent_on = $1`, day.Time()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count offers for %s: %w", day, err)
	}
	return n, nil
}
