package storage

import (
	"context"
	"sync"

	"github.com/pauljones0/offers-bot/internal/models"
)

// MemoryStore keeps records in process memory. Used by tests and the memory backend.
type MemoryStore struct {
	mu   sync.Mutex
	days map[models.Day]map[string]models.RecencyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[models.Day]map[string]models.RecencyRecord)}
}

func (m *MemoryStore) Exists(_ context.Context, id string, day models.Day) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.days[day][id]
	return ok, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec models.RecencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	day, ok := m.days[rec.Day]
	if !ok {
		day = make(map[string]models.RecencyRecord)
		m.days[rec.Day] = day
	}
	if _, dup := day[rec.ID]; dup {
		return models.ErrDuplicate
	}
	day[rec.ID] = rec
	return nil
}

func (m *MemoryStore) CountDay(_ context.Context, day models.Day) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.days[day]), nil
}

func (m *MemoryStore) Close() error { return nil }
