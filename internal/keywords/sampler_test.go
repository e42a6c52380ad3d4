package keywords

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

func flatten(m map[string][]string) []string {
	var out []string
	for _, kws := range m {
		out = append(out, kws...)
	}
	return out
}

// twentyKeywordPools spreads 20 keywords over 3 categories and 3 pools.
func twentyKeywordPools() [3]models.KeywordPool {
	kw := func(prefix string, n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("%s-%d", prefix, i)
		}
		return out
	}
	return [3]models.KeywordPool{
		{"Electronics": kw("tv", 4), "Computers": kw("laptop", 3), "VideoGames": kw("console", 2)},
		{"Electronics": kw("audio", 3), "Computers": kw("monitor", 2)},
		{"Electronics": kw("cable", 3), "VideoGames": kw("controller", 3)},
	}
}

func TestSplit_SumsToTotal(t *testing.T) {
	s := NewSampler(util.NewRand(1))
	for total := 0; total <= 40; total++ {
		parts := s.Split(total)
		require.Equal(t, total, parts[0]+parts[1]+parts[2], "total %d", total)
		require.GreaterOrEqual(t, parts[0], total*60/100)
	}
}

func TestSplit_Fifteen(t *testing.T) {
	s := NewSampler(util.NewRand(2))
	parts := s.Split(15)
	// floor gives 9/3/2, one unit is distributed at random
	require.Equal(t, 15, parts[0]+parts[1]+parts[2])
	require.GreaterOrEqual(t, parts[0], 9)
	require.GreaterOrEqual(t, parts[1], 3)
	require.GreaterOrEqual(t, parts[2], 2)
}

func TestSample_HundredRunsWithinRangeAndUnique(t *testing.T) {
	s := NewSampler(util.NewRand(42))
	pools := twentyKeywordPools()
	r := Range{Min: 6, Max: 15}

	for run := 0; run < 100; run++ {
		got := flatten(s.Sample(pools, r))
		require.GreaterOrEqual(t, len(got), 6, "run %d", run)
		require.LessOrEqual(t, len(got), 15, "run %d", run)

		seen := map[string]bool{}
		for _, kw := range got {
			require.False(t, seen[kw], "run %d: duplicate keyword %q", run, kw)
			seen[kw] = true
		}
	}
}

func TestSample_KeywordSharedAcrossPoolsDrawnOnce(t *testing.T) {
	s := NewSampler(util.NewRand(9))
	pools := [3]models.KeywordPool{
		{"Electronics": {"Smartphone"}},
		{"Electronics": {"Smartphone"}, "Computers": {"Smartphone"}},
		{"Electronics": {"Smartphone"}},
	}

	got := flatten(s.Sample(pools, Range{Min: 10, Max: 10}))
	require.Equal(t, []string{"Smartphone"}, got)
}

func TestSample_EmptyPoolsStopEarly(t *testing.T) {
	s := NewSampler(util.NewRand(3))
	pools := [3]models.KeywordPool{
		{"Electronics": {"a", "b"}},
		{},
		{"Computers": {}},
	}

	got := s.Sample(pools, Range{Min: 50, Max: 50})
	// the first pool's quota (30) is larger than the pool, leftovers never spill
	require.ElementsMatch(t, []string{"a", "b"}, flatten(got))
	require.NotContains(t, got, "Computers")
}

func TestSample_AllEmpty(t *testing.T) {
	s := NewSampler(util.NewRand(4))
	got := s.Sample([3]models.KeywordPool{}, Range{Min: 6, Max: 15})
	require.Empty(t, got)
}

func TestSample_InvalidRange(t *testing.T) {
	s := NewSampler(util.NewRand(5))
	got := s.Sample(twentyKeywordPools(), Range{Min: 10, Max: 2})
	require.Empty(t, got)
}

func TestSample_KeepsCategoryOfKeyword(t *testing.T) {
	s := NewSampler(util.NewRand(6))
	pools := twentyKeywordPools()
	owner := map[string]string{}
	for _, pool := range pools {
		for cat, kws := range pool {
			for _, kw := range kws {
				owner[kw] = cat
			}
		}
	}

	got := s.Sample(pools, Range{Min: 15, Max: 15})
	for cat, kws := range got {
		for _, kw := range kws {
			require.Equal(t, owner[kw], cat, "keyword %q filed under wrong category", kw)
		}
	}
}

func TestSource_FixedMode(t *testing.T) {
	fixed := models.KeywordPool{"Electronics": {"Televisori", "Tablet"}}
	src := NewSource(fixed, twentyKeywordPools(), false, Range{Min: 6, Max: 15}, NewSampler(util.NewRand(7)))

	got := src.Keywords()
	require.Equal(t, map[string][]string{"Electronics": {"Televisori", "Tablet"}}, got)

	got["Electronics"][0] = "changed"
	require.Equal(t, "Televisori", fixed["Electronics"][0], "fixed pool must not be aliased")
}

func TestSource_SubsetMode(t *testing.T) {
	src := NewSource(nil, twentyKeywordPools(), true, Range{Min: 6, Max: 6}, NewSampler(util.NewRand(8)))
	require.Len(t, flatten(src.Keywords()), 6)
}

func TestDrawFromPool_StopsWhenPoolRunsDry(t *testing.T) {
	s := NewSampler(util.NewRand(3))
	pool := models.KeywordPool{"Electronics": {"tv", "soundbar"}, "Computers": {"laptop", "tv"}}
	out := make(map[string][]string)

	n := s.drawFromPool(pool, 10, map[string]bool{}, out)

	require.Equal(t, 3, n)
	require.ElementsMatch(t, []string{"tv", "soundbar", "laptop"}, flatten(out))
}
