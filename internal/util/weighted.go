package util

import (
	"math/rand/v2"
	"time"
)

// Rand is the subset of *rand.Rand the pipeline draws from. Tests pass a seeded source.
type Rand interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a PCG backed generator seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewTimeSeededRand seeds from the wall clock.
func NewTimeSeededRand() *rand.Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

// WeightedIndex picks an index with probability proportional to its weight.
// Non-positive weights are never picked. Returns -1 when no weight is positive.
func WeightedIndex(r Rand, weights []float64) int {
	var total float64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return -1
	}

	x := r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		x -= w
		if x < 0 {
			return i
		}
	}
	// float rounding can leave x at exactly 0
	return last
}

// IntBetween returns a uniform integer in [lo, hi].
func IntBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// WeightedBag draws keys without replacement: every draw decrements the drawn key's weight by one.
type WeightedBag[K comparable] struct {
	keys    []K
	weights []float64
}

// NewWeightedBag builds a bag from parallel keys and weights.
func NewWeightedBag[K comparable](keys []K, weights []float64) *WeightedBag[K] {
	w := make([]float64, len(weights))
	copy(w, weights)
	k := make([]K, len(keys))
	copy(k, keys)
	return &WeightedBag[K]{keys: k, weights: w}
}

// Draw returns a key and false once every weight is exhausted.
func (b *WeightedBag[K]) Draw(r Rand) (K, bool) {
	i := WeightedIndex(r, b.weights)
	if i < 0 {
		var zero K
		return zero, false
	}
	b.weights[i]--
	return b.keys[i], true
}

// Remaining returns the sum of positive weights.
func (b *WeightedBag[K]) Remaining() float64 {
	var total float64
	for _, w := range b.weights {
		if w > 0 {
			total += w
		}
	}
	return total
}
