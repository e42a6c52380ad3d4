package processor

import (
	"context"
	"time"

	"github.com/pauljones0/offers-bot/internal/models"
)

// KeywordSource yields the category to keywords mapping for one cycle.
type KeywordSource interface {
	Keywords() map[string][]string
}

// CandidateFetcher abstracts the search layer.
type CandidateFetcher interface {
	Fetch(ctx context.Context, keywords map[string][]string) ([]models.Candidate, error)
}

type OfferFilter interface {
	Apply(candidates []models.Candidate) []models.Offer
}

// RecencyIndex abstracts the sent offers log.
type RecencyIndex interface {
	Today() models.Day
	Filter(ctx context.Context, offers []models.Offer, lookbackDays int) []models.Offer
	Record(ctx context.Context, id string, day models.Day) error
	SentOn(ctx context.Context, day models.Day) (int, error)
}

type BatchSelector interface {
	Select(offers []models.Offer) []models.Offer
}

// OfferNotifier abstracts the notification layer.
type OfferNotifier interface {
	Deliver(ctx context.Context, offer models.Offer) error
}

// Enricher produces a display title. An empty title keeps the original.
type Enricher interface {
	CleanTitle(ctx context.Context, offer models.Offer) (string, error)
}

// Observer is told about every delivered offer.
type Observer interface {
	OfferSent(ctx context.Context, sent models.SentOffer) error
}

// Gate decides whether a cycle may run now.
type Gate interface {
	IsWindowOpen(now time.Time) bool
	Wait() time.Duration
}

type Ticker interface {
	Next(now time.Time) time.Time
}
