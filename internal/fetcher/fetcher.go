// Package fetcher pages through keyword searches and collects unique candidates.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/paapi"
	"github.com/pauljones0/offers-bot/internal/util"
)

// ErrUpstreamUnreachable means every search in the run failed to connect.
var ErrUpstreamUnreachable = errors.New("search upstream unreachable")

const (
	pageDelay      = 2 * time.Second
	emptyPageDelay = 10 * time.Second
	minRateWait    = 2 * 60 // seconds
	maxRateWait    = 3 * 60
)

// hintWeights pick between no hint (index 0) and the configured threshold.
var hintWeights = []float64{0.7, 0.3}

// Searcher is the search collaborator.
type Searcher interface {
	Search(ctx context.Context, req paapi.SearchRequest) ([]paapi.Item, error)
}

// Sleeper pauses between requests. It returns early with ctx.Err() on cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Options struct {
	MaxPage          int
	ItemCount        int
	MinSavingPercent int
}

type Fetcher struct {
	searcher Searcher
	opts     Options
	rng      util.Rand
	sleep    Sleeper
}

func New(s Searcher, opts Options, rng util.Rand, sleep Sleeper) *Fetcher {
	if sleep == nil {
		sleep = Sleep
	}
	return &Fetcher{searcher: s, opts: opts, rng: rng, sleep: sleep}
}

// Fetch searches every (category, keyword) pair for pages 1..MaxPage and
// returns candidates deduplicated by ID, first occurrence wins. Page failures
// are logged and skipped. The only error besides cancellation is
// ErrUpstreamUnreachable, when no request could reach the API.
func (f *Fetcher) Fetch(ctx context.Context, keywords map[string][]string) ([]models.Candidate, error) {
	categories := make([]string, 0, len(keywords))
	for cat := range keywords {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	seen := make(map[string]bool)
	var out []models.Candidate
	var requests, connFailures int
	var lastConnErr error

	for _, cat := range categories {
		for _, kw := range keywords[cat] {
			for page := 1; page <= f.opts.MaxPage; page++ {
				req := paapi.SearchRequest{
					Keywords:         kw,
					Category:         cat,
					Page:             page,
					ItemCount:        f.opts.ItemCount,
					MinSavingPercent: f.savingHint(),
				}

				items, err := f.searchPage(ctx, req)
				requests++

				if err != nil {
					if isConnectivity(err) {
						connFailures++
						lastConnErr = err
					}
					slog.Warn("Search page failed, skipping", "category", cat, "keyword", kw, "page", page, "error", err)
					if err := f.sleep(ctx, emptyPageDelay); err != nil {
						return out, err
					}
					continue
				}
				if len(items) == 0 {
					slog.Info("Search page returned no items", "category", cat, "keyword", kw, "page", page)
					if err := f.sleep(ctx, emptyPageDelay); err != nil {
						return out, err
					}
					continue
				}

				added := 0
				for _, item := range items {
					c, ok := item.Candidate()
					if !ok {
						slog.Warn("Dropping item without ASIN", "category", cat, "keyword", kw, "page", page)
						continue
					}
					if seen[c.ID] {
						continue
					}
					seen[c.ID] = true
					out = append(out, c)
					added++
				}
				slog.Debug("Fetched page", "category", cat, "keyword", kw, "page", page, "items", len(items), "new", added, "hint", req.MinSavingPercent)

				if err := f.sleep(ctx, pageDelay); err != nil {
					return out, err
				}
			}
		}
	}

	if requests > 0 && connFailures == requests {
		return nil, fmt.Errorf("%w: %d requests failed: %w", ErrUpstreamUnreachable, requests, lastConnErr)
	}
	slog.Info("Fetch complete", "requests", requests, "candidates", len(out))
	return out, nil
}

// searchPage retries a rate-limited page exactly once after a 2-3 minute pause.
func (f *Fetcher) searchPage(ctx context.Context, req paapi.SearchRequest) ([]paapi.Item, error) {
	items, err := f.searcher.Search(ctx, req)
	if !errors.Is(err, paapi.ErrRateLimited) {
		return items, err
	}

	wait := time.Duration(util.IntBetween(f.rng, minRateWait, maxRateWait)) * time.Second
	slog.Warn("Rate limited, retrying page once", "keyword", req.Keywords, "page", req.Page, "wait", wait)
	if err := f.sleep(ctx, wait); err != nil {
		return nil, err
	}
	return f.searcher.Search(ctx, req)
}

// savingHint sends the threshold only 30% of the time. The API hides some
// valid high-discount items when MinSavingPercent is set.
func (f *Fetcher) savingHint() int {
	if util.WeightedIndex(f.rng, hintWeights) == 1 {
		return f.opts.MinSavingPercent
	}
	return 0
}

// isConnectivity matches transport failures (dial, DNS, timeouts), which
// surface from net/http as *url.Error implementing net.Error.
func isConnectivity(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
