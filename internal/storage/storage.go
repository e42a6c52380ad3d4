// Package storage holds the recency log backends.
package storage

import (
	"context"
	"fmt"

	"github.com/pauljones0/offers-bot/internal/config"
	"github.com/pauljones0/offers-bot/internal/recency"
)

// Backend is a recency store that can count a day and be closed.
type Backend interface {
	recency.Store
	recency.Counter
	Close() error
}

var (
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*FirestoreStore)(nil)
	_ Backend = (*PostgresStore)(nil)
	_ Backend = (*RedisStore)(nil)
)

// Open builds the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.StorageBackend {
	case config.StorageMemory, "":
		return NewMemoryStore(), nil
	case config.StorageFirestore:
		var s *FirestoreStore
		if s, err = NewFirestore(ctx, cfg.ProjectID, cfg.FirestoreCredentialsFile); err == nil {
			b = s
		}
	case config.StoragePostgres:
		var s *PostgresStore
		if s, err = NewPostgres(ctx, cfg.DatabaseURL); err == nil {
			b = s
		}
	case config.StorageRedis:
		var s *RedisStore
		if s, err = NewRedis(ctx, cfg.RedisURL); err == nil {
			b = s
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	return b, nil
}
