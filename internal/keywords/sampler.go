// Package keywords draws the per-run search keywords from the configured pools.
package keywords

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

// poolShares is the percentage of the budget given to each pool.
var poolShares = [3]int{60, 25, 15}

// remainderWeights distribute the units lost to flooring.
var remainderWeights = []float64{0.3, 0.4, 0.3}

// Range is the inclusive bound on the number of keywords drawn per run.
type Range struct {
	Min int
	Max int
}

func (r Range) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("invalid keyword range: min %d is negative", r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("invalid keyword range: min %d greater than max %d", r.Min, r.Max)
	}
	return nil
}

// Sampler draws keywords without replacement across three weighted pools.
type Sampler struct {
	rng util.Rand
}

func NewSampler(rng util.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Split divides total across the three pools. The parts always sum to total.
func (s *Sampler) Split(total int) [3]int {
	var parts [3]int
	if total <= 0 {
		return parts
	}
	assigned := 0
	for i, share := range poolShares {
		parts[i] = total * share / 100
		assigned += parts[i]
	}
	for ; assigned < total; assigned++ {
		parts[util.WeightedIndex(s.rng, remainderWeights)]++
	}
	return parts
}

// Sample draws a budget uniformly from r, splits it across pools and picks
// keywords category by category. Categories are weighted by how many unused
// keywords they still hold. A keyword is returned at most once even when it
// appears in several pools or categories. Exhausted pools stop early.
func (s *Sampler) Sample(pools [3]models.KeywordPool, r Range) map[string][]string {
	out := make(map[string][]string)
	if err := r.Validate(); err != nil {
		slog.Warn("Skipping keyword sampling", "error", err)
		return out
	}

	total := util.IntBetween(s.rng, r.Min, r.Max)
	quotas := s.Split(total)
	used := make(map[string]bool)

	drawn := 0
	for i, pool := range pools {
		drawn += s.drawFromPool(pool, quotas[i], used, out)
	}

	slog.Debug("Sampled keywords", "budget", total, "drawn", drawn, "quotas", quotas)
	return out
}

func (s *Sampler) drawFromPool(pool models.KeywordPool, quota int, used map[string]bool, out map[string][]string) int {
	if quota <= 0 || len(pool) == 0 {
		return 0
	}

	categories := make([]string, 0, len(pool))
	for cat := range pool {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	// Per-category lists of keywords not yet drawn in this run.
	seen := make(map[string]bool)
	remaining := make([][]string, len(categories))
	weights := make([]float64, len(categories))
	for i, cat := range categories {
		for _, kw := range pool[cat] {
			if kw == "" || used[kw] || seen[kw] {
				continue
			}
			seen[kw] = true
			remaining[i] = append(remaining[i], kw)
		}
		weights[i] = float64(len(remaining[i]))
	}

	bag := util.NewWeightedBag(indexes(len(categories)), weights)
	n := 0
	for n < quota {
		ci, ok := bag.Draw(s.rng)
		if !ok {
			break
		}
		list := remaining[ci]
		j := s.rng.IntN(len(list))
		kw := list[j]
		remaining[ci] = append(list[:j], list[j+1:]...)

		used[kw] = true
		out[categories[ci]] = append(out[categories[ci]], kw)
		n++
	}
	if n < quota && bag.Remaining() == 0 {
		slog.Debug("Keyword pool exhausted before quota", "quota", quota, "drawn", n)
	}
	return n
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
