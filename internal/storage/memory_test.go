package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pauljones0/offers-bot/internal/models"
)

func TestMemoryStore_InsertExistsCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	day := models.Day{Year: 2024, Month: time.March, Day: 9}

	found, err := s.Exists(ctx, "B001", day)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Insert(ctx, models.RecencyRecord{ID: "B001", Day: day}))
	require.NoError(t, s.Insert(ctx, models.RecencyRecord{ID: "B002", Day: day}))

	found, err = s.Exists(ctx, "B001", day)
	require.NoError(t, err)
	require.True(t, found)

	found, err = s.Exists(ctx, "B001", day.AddDays(1))
	require.NoError(t, err)
	require.False(t, found, "records are partitioned by day")

	n, err := s.CountDay(ctx, day)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMemoryStore_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	day := models.Day{Year: 2024, Month: time.March, Day: 9}

	require.NoError(t, s.Insert(ctx, models.RecencyRecord{ID: "B001", Day: day}))
	err := s.Insert(ctx, models.RecencyRecord{ID: "B001", Day: day})
	require.True(t, errors.Is(err, models.ErrDuplicate))

	require.NoError(t, s.Insert(ctx, models.RecencyRecord{ID: "B001", Day: day.AddDays(1)}))

	n, err := s.CountDay(ctx, day)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemoryStore_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	day := models.Day{Year: 2024, Month: time.March, Day: 9}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Insert(ctx, models.RecencyRecord{ID: "SAME", Day: day}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, accepted)
}
