package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pauljones0/offers-bot/internal/models"
)

// RedisStore keeps one set per day under sent_offers:{YYYY}:{MM}:{DD}.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedis parses redisURL and verifies connectivity.
func NewRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func redisDayKey(day models.Day) string {
	return fmt.Sprintf("sent_offers:%s:%s:%s", day.YearKey(), day.MonthKey(), day.DayKey())
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Exists(ctx context.Context, id string, day models.Day) (bool, error) {
	found, err := s.rdb.SIsMember(ctx, redisDayKey(day), id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check offer %s for %s: %w", id, day, err)
	}
	return found, nil
}

// Insert uses SADD, which reports 0 added members for an existing ID.
func (s *RedisStore) Insert(ctx context.Context, rec models.RecencyRecord) error {
	added, err := s.rdb.SAdd(ctx, redisDayKey(rec.Day), rec.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to insert offer %s for %s: %w", rec.ID, rec.Day, err)
	}
	if added == 0 {
		return models.ErrDuplicate
	}
	return nil
}

func (s *RedisStore) CountDay(ctx context.Context, day models.Day) (int, error) {
	n, err := s.rdb.SCard(ctx, redisDayKey(day)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count offers for %s: %w", day, err)
	}
	return int(n), nil
}
