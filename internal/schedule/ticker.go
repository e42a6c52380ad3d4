package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pauljones0/offers-bot/internal/util"
)

var (
	cycleWaitSteps   = []int{20, 40, 60, 80, 100, 120, 140, 160}
	cycleWaitWeights = []float64{0.12, 0.13, 0.125, 0.125, 0.12, 0.13, 0.12, 0.13}
	// index 1 adds ten minutes to the drawn step
	cycleShiftWeights = []float64{0.3, 0.7}
)

// Ticker computes when the next cycle starts.
type Ticker struct {
	sched cron.Schedule
	loc   *time.Location
	rng   util.Rand
}

// NewTicker parses a standard cron spec ("*/15 * * * *", "@every 30m").
// Fields are read as wall-clock times in loc. An empty spec selects the randomized wait.
func NewTicker(spec string, loc *time.Location, rng util.Rand) (*Ticker, error) {
	if loc == nil {
		loc = time.UTC
	}
	t := &Ticker{loc: loc, rng: rng}
	if spec == "" {
		return t, nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cycle schedule %q: %w", spec, err)
	}
	t.sched = sched
	return t, nil
}

// Next returns the start of the next cycle after now.
func (t *Ticker) Next(now time.Time) time.Time {
	if t.sched != nil {
		return t.sched.Next(now.In(t.loc))
	}
	return now.Add(t.randomWait())
}

func (t *Ticker) randomWait() time.Duration {
	minutes := cycleWaitSteps[util.WeightedIndex(t.rng, cycleWaitWeights)]
	if util.WeightedIndex(t.rng, cycleShiftWeights) == 1 {
		minutes += 10
	}
	minutes = util.IntBetween(t.rng, minutes, minutes+10)
	return time.Duration(minutes) * time.Minute
}
