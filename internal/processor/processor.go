package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pauljones0/offers-bot/internal/fetcher"
	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

// ErrNotConfigured is returned by New when a required collaborator is missing.
var ErrNotConfigured = errors.New("processor not configured")

const defaultCycleWait = 15 * time.Minute

type State int32

const (
	Idle State = iota
	Fetching
	Filtering
	Deduping
	Selecting
	Delivering
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Filtering:
		return "filtering"
	case Deduping:
		return "deduping"
	case Selecting:
		return "selecting"
	case Delivering:
		return "delivering"
	case Recording:
		return "recording"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type Processor interface {
	ProcessOffers(ctx context.Context) (Report, error)
	Wake()
	State() State
}

// Report summarises one cycle.
type Report struct {
	RunID            string
	Day              models.Day
	Keywords         int
	Candidates       int
	Offers           int
	Fresh            int
	Selected         int
	Delivered        []string
	Recorded         []string
	DeliveryFailures int
	Duplicates       int
}

// Deps are the cycle collaborators. Enricher, Observers, Gate and Ticker are optional.
type Deps struct {
	Keywords  KeywordSource
	Fetcher   CandidateFetcher
	Filter    OfferFilter
	Recency   RecencyIndex
	Selector  BatchSelector
	Notifier  OfferNotifier
	Enricher  Enricher
	Observers []Observer
	Gate      Gate
	Ticker    Ticker
}

type Options struct {
	LookbackDays        int
	ConnectivityBackoff time.Duration
	Marketplace         string
	PartnerTag          string
}

type OfferProcessor struct {
	deps  Deps
	opts  Options
	state atomic.Int32
	wake  chan struct{}

	now      func() time.Time
	newRunID func() string
	sleepFn  func(ctx context.Context, d time.Duration) error
}

func New(d Deps, opts Options) (*OfferProcessor, error) {
	var missing []string
	if d.Keywords == nil {
		missing = append(missing, "keywords")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Filter == nil {
		missing = append(missing, "filter")
	}
	if d.Recency == nil {
		missing = append(missing, "recency")
	}
	if d.Selector == nil {
		missing = append(missing, "selector")
	}
	if d.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	p := &OfferProcessor{
		deps:     d,
		opts:     opts,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	p.sleepFn = p.sleep
	return p, nil
}

// State reports the current stage. Safe to call from other goroutines.
func (p *OfferProcessor) State() State {
	return State(p.state.Load())
}

func (p *OfferProcessor) setState(s State) {
	p.state.Store(int32(s))
}

// Wake asks Run to start the next cycle without waiting for the ticker.
// It never blocks and never starts a second concurrent cycle.
func (p *OfferProcessor) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// ProcessOffers runs exactly one cycle: fetch, filter, dedupe, select, deliver, record.
// Per-offer failures are logged and counted. The returned error is reserved for
// failures that abandon the cycle.
func (p *OfferProcessor) ProcessOffers(ctx context.Context) (Report, error) {
	report := Report{RunID: p.newRunID()}
	log := slog.With("run_id", report.RunID)
	defer p.setState(Idle)

	p.setState(Fetching)
	keywords := p.deps.Keywords.Keywords()
	for _, kws := range keywords {
		report.Keywords += len(kws)
	}
	log.Info("Starting cycle", "keywords", report.Keywords, "categories", len(keywords))

	candidates, err := p.deps.Fetcher.Fetch(ctx, keywords)
	if err != nil {
		return report, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		log.Warn("No candidates fetched")
		return report, nil
	}

	p.setState(Filtering)
	offers := p.deps.Filter.Apply(candidates)
	report.Offers = len(offers)
	if len(offers) == 0 {
		log.Info("No candidate met the discount thresholds", "candidates", report.Candidates)
		return report, nil
	}

	p.setState(Deduping)
	fresh := p.deps.Recency.Filter(ctx, offers, p.opts.LookbackDays)
	report.Fresh = len(fresh)
	if len(fresh) == 0 {
		log.Info("Every offer was sent recently", "offers", report.Offers, "lookback_days", p.opts.LookbackDays)
		return report, nil
	}

	p.setState(Selecting)
	batch := p.deps.Selector.Select(fresh)
	report.Selected = len(batch)
	p.enrich(ctx, log, batch)

	p.setState(Delivering)
	delivered := make([]models.Offer, 0, len(batch))
	for _, offer := range batch {
		if err := p.deps.Notifier.Deliver(ctx, offer); err != nil {
			report.DeliveryFailures++
			log.Error("Failed to deliver offer", "offer_id", offer.ID, "error", err)
			continue
		}
		delivered = append(delivered, offer)
		report.Delivered = append(report.Delivered, offer.ID)
	}

	p.setState(Recording)
	day := p.deps.Recency.Today()
	report.Day = day
	for _, offer := range delivered {
		if err := p.deps.Recency.Record(ctx, offer.ID, day); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				report.Duplicates++
				log.Warn("Offer already recorded today", "offer_id", offer.ID, "day", day.String())
			} else {
				log.Error("Failed to record sent offer", "offer_id", offer.ID, "day", day.String(), "error", err)
			}
		} else {
			report.Recorded = append(report.Recorded, offer.ID)
		}
		p.notifyObservers(ctx, log, models.SentOffer{
			Offer:  offer,
			Day:    day,
			SentAt: p.now(),
			RunID:  report.RunID,
			Link:   util.ProductLink(p.opts.Marketplace, offer.ID, p.opts.PartnerTag),
		})
	}

	if sent, err := p.deps.Recency.SentOn(ctx, day); err != nil {
		log.Debug("Could not count offers sent today", "error", err)
	} else {
		log.Info("Offers sent today", "day", day.String(), "count", sent)
	}

	log.Info("Finished cycle",
		"candidates", report.Candidates,
		"offers", report.Offers,
		"fresh", report.Fresh,
		"selected", report.Selected,
		"delivered", len(report.Delivered),
		"recorded", len(report.Recorded),
	)
	return report, nil
}

func (p *OfferProcessor) enrich(ctx context.Context, log *slog.Logger, batch []models.Offer) {
	if p.deps.Enricher == nil {
		return
	}
	for i := range batch {
		title, err := p.deps.Enricher.CleanTitle(ctx, batch[i])
		if err != nil {
			log.Warn("Title cleanup failed, keeping original", "offer_id", batch[i].ID, "error", err)
			continue
		}
		batch[i].CleanTitle = title
	}
}

func (p *OfferProcessor) notifyObservers(ctx context.Context, log *slog.Logger, sent models.SentOffer) {
	for _, o := range p.deps.Observers {
		if err := o.OfferSent(ctx, sent); err != nil {
			log.Warn("Observer failed", "observer", fmt.Sprintf("%T", o), "offer_id", sent.Offer.ID, "error", err)
		}
	}
}

// Run loops until ctx is cancelled. A closed gate waits the gate's own
// interval, a connectivity failure waits ConnectivityBackoff, anything else
// waits for the ticker. Run returns ctx.Err().
func (p *OfferProcessor) Run(ctx context.Context) error {
	for {
		var wait time.Duration
		if p.deps.Gate != nil && !p.deps.Gate.IsWindowOpen(p.now()) {
			wait = p.deps.Gate.Wait()
			slog.Info("Outside the publishing window, waiting", "wait", wait)
		} else {
			_, err := p.safeCycle(ctx)
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, fetcher.ErrUpstreamUnreachable):
				wait = p.opts.ConnectivityBackoff
				slog.Error("Connection error, backing off", "wait", wait, "error", err)
			default:
				wait = p.nextWait()
				slog.Info("Waiting before next cycle", "wait", wait)
			}
		}

		if err := p.sleepFn(ctx, wait); err != nil {
			return err
		}
	}
}

// safeCycle runs one cycle and turns panics into errors.
func (p *OfferProcessor) safeCycle(ctx context.Context) (report Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
			slog.Error("Unexpected failure during cycle", "critical", true, "error", err, "stack", string(debug.Stack()))
		}
	}()

	report, err = p.ProcessOffers(ctx)
	if err != nil && !errors.Is(err, fetcher.ErrUpstreamUnreachable) && ctx.Err() == nil {
		slog.Error("Cycle failed", "critical", true, "run_id", report.RunID, "error", err)
	}
	return report, err
}

func (p *OfferProcessor) nextWait() time.Duration {
	if p.deps.Ticker == nil {
		return defaultCycleWait
	}
	now := p.now()
	if d := p.deps.Ticker.Next(now).Sub(now); d > 0 {
		return d
	}
	return 0
}

// sleep waits for d, a Wake call or cancellation.
func (p *OfferProcessor) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	case <-p.wake:
		slog.Info("Woken up for an early cycle")
		return nil
	}
}
