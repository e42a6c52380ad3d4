// Package schedule decides when a cycle may run and how long to sleep between cycles.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/us"

	"github.com/pauljones0/offers-bot/internal/util"
)

const (
	closedWaitMin = 1500 * time.Second
	closedWaitMax = 2100 * time.Second
)

// countryHolidays are the national calendars HolidayCountry can select.
var countryHolidays = map[string][]*cal.Holiday{
	"IT": it.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"US": us.Holidays,
}

// GateConfig describes the publishing window. From and Until are offsets from local midnight;
// both minutes are inclusive. HolidayCountry picks a national calendar (empty for none) and
// Holidays adds MM-DD dates on top of it.
type GateConfig struct {
	From           time.Duration
	Until          time.Duration
	SkipSunday     bool
	HolidayCountry string
	Holidays       []string
	Location       *time.Location
}

type Gate struct {
	cfg      GateConfig
	calendar *cal.BusinessCalendar
	extra    map[string]bool
	rng      util.Rand
}

func NewGate(cfg GateConfig, rng util.Rand) (*Gate, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	calendar := cal.NewBusinessCalendar()
	if country := strings.ToUpper(strings.TrimSpace(cfg.HolidayCountry)); country != "" {
		holidays, ok := countryHolidays[country]
		if !ok {
			return nil, fmt.Errorf("unsupported holiday country %q", cfg.HolidayCountry)
		}
		calendar.AddHoliday(holidays...)
	}

	extra := make(map[string]bool, len(cfg.Holidays))
	for _, d := range cfg.Holidays {
		extra[d] = true
	}
	return &Gate{cfg: cfg, calendar: calendar, extra: extra, rng: rng}, nil
}

// SupportedHolidayCountry reports whether country has a built-in calendar.
func SupportedHolidayCountry(country string) bool {
	_, ok := countryHolidays[strings.ToUpper(strings.TrimSpace(country))]
	return ok
}

// IsHoliday reports whether the local day of t is a national or extra holiday.
func (g *Gate) IsHoliday(t time.Time) bool {
	local := t.In(g.cfg.Location)
	if g.extra[local.Format("01-02")] {
		return true
	}
	actual, observed, _ := g.calendar.IsHoliday(local)
	return actual || observed
}

// IsWindowOpen reports whether now is inside the publishing window,
// not a Sunday (when configured) and not a holiday.
func (g *Gate) IsWindowOpen(now time.Time) bool {
	local := now.In(g.cfg.Location)
	if g.cfg.SkipSunday && local.Weekday() == time.Sunday {
		return false
	}
	if g.IsHoliday(local) {
		return false
	}

	minute := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
	return minute >= g.cfg.From.Truncate(time.Minute) && minute <= g.cfg.Until.Truncate(time.Minute)
}

// Wait returns how long to sleep before checking a closed gate again.
func (g *Gate) Wait() time.Duration {
	secs := util.IntBetween(g.rng, int(closedWaitMin/time.Second), int(closedWaitMax/time.Second))
	return time.Duration(secs) * time.Second
}
