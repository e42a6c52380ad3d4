// Package selector picks the small random batch of offers published per cycle.
package selector

import (
	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

var (
	batchSizes   = []int{2, 3, 4, 5, 6}
	batchWeights = []float64{0.10, 0.12, 0.20, 0.30, 0.28}
)

type Selector struct {
	rng util.Rand
}

func New(rng util.Rand) *Selector {
	return &Selector{rng: rng}
}

// BatchSize draws the number of offers to publish this cycle.
func (s *Selector) BatchSize() int {
	return batchSizes[util.WeightedIndex(s.rng, batchWeights)]
}

// Select shuffles a copy of offers and keeps the first BatchSize of them.
// The input slice is left untouched.
func (s *Selector) Select(offers []models.Offer) []models.Offer {
	if len(offers) == 0 {
		return nil
	}
	out := make([]models.Offer, len(offers))
	copy(out, offers)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	if n := s.BatchSize(); n < len(out) {
		out = out[:n]
	}
	return out
}
