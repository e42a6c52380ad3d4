// Package recency answers whether an offer was sent within the last few days.
package recency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pauljones0/offers-bot/internal/models"
)

// Store is the per-day partitioned log of sent offer IDs.
type Store interface {
	// Exists reports whether id was recorded on day. A day with no records is (false, nil).
	Exists(ctx context.Context, id string, day models.Day) (bool, error)
	// Insert appends rec. A second insert of the same ID on the same day returns models.ErrDuplicate.
	Insert(ctx context.Context, rec models.RecencyRecord) error
}

// Counter is implemented by stores that can count one day's records.
type Counter interface {
	CountDay(ctx context.Context, day models.Day) (int, error)
}

type Index struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

type Option func(*Index)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Index) { i.now = now }
}

// WithLocation sets the timezone that decides where a day starts.
func WithLocation(loc *time.Location) Option {
	return func(i *Index) { i.loc = loc }
}

func New(store Store, opts ...Option) *Index {
	i := &Index{store: store, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Today returns the current partition day.
func (i *Index) Today() models.Day {
	return models.DayOf(i.now().In(i.loc))
}

// IsRecent scans today and the lookbackDays-1 days before it, stopping at the
// first day holding id. Store errors for a day are logged and the scan goes on.
func (i *Index) IsRecent(ctx context.Context, id string, lookbackDays int) bool {
	today := i.Today()
	for offset := 0; offset < lookbackDays; offset++ {
		day := today.AddDays(-offset)
		found, err := i.store.Exists(ctx, id, day)
		if err != nil {
			slog.Warn("Recency lookup failed, treating day as empty", "offer_id", id, "day", day.String(), "error", err)
			continue
		}
		if found {
			return true
		}
	}
	return false
}

// Record stores id under day. Duplicates come back wrapping models.ErrDuplicate.
func (i *Index) Record(ctx context.Context, id string, day models.Day) error {
	err := i.store.Insert(ctx, models.RecencyRecord{ID: id, Day: day, SentAt: i.now()})
	if errors.Is(err, models.ErrDuplicate) {
		return fmt.Errorf("record %s on %s: %w", id, day, err)
	}
	if err != nil {
		return fmt.Errorf("failed to record %s on %s: %w", id, day, err)
	}
	return nil
}

// Filter drops offers sent within lookbackDays and keeps the order of the rest.
func (i *Index) Filter(ctx context.Context, offers []models.Offer, lookbackDays int) []models.Offer {
	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if i.IsRecent(ctx, o.ID, lookbackDays) {
			slog.Debug("Skipping recently sent offer", "offer_id", o.ID)
			continue
		}
		out = append(out, o)
	}
	return out
}

// SentOn returns how many offers were recorded on day. Stores that cannot
// count report an error.
func (i *Index) SentOn(ctx context.Context, day models.Day) (int, error) {
	c, ok := i.store.(Counter)
	if !ok {
		return 0, fmt.Errorf("store %T cannot count records", i.store)
	}
	return c.CountDay(ctx, day)
}
