package keywords

import "github.com/pauljones0/offers-bot/internal/models"

// Source hands the fetcher its keywords for one run.
type Source struct {
	fixed   models.KeywordPool
	pools   [3]models.KeywordPool
	subset  bool
	rng     Range
	sampler *Sampler
}

// NewSource returns a Source. With subset false every run uses the fixed pool verbatim.
func NewSource(fixed models.KeywordPool, pools [3]models.KeywordPool, subset bool, r Range, sampler *Sampler) *Source {
	return &Source{fixed: fixed, pools: pools, subset: subset, rng: r, sampler: sampler}
}

// Keywords returns the category to keyword mapping for this run.
func (s *Source) Keywords() map[string][]string {
	if s.subset {
		return s.sampler.Sample(s.pools, s.rng)
	}
	out := make(map[string][]string, len(s.fixed))
	for cat, kws := range s.fixed {
		out[cat] = append([]string(nil), kws...)
	}
	return out
}
