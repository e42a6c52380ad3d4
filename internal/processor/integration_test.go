//go:build integration

package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/fetcher"
	"github.com/pauljones0/offers-bot/internal/filter"
	"github.com/pauljones0/offers-bot/internal/notifier"
	"github.com/pauljones0/offers-bot/internal/paapi"
	"github.com/pauljones0/offers-bot/internal/recency"
	"github.com/pauljones0/offers-bot/internal/selector"
	"github.com/pauljones0/offers-bot/internal/storage"
	"github.com/pauljones0/offers-bot/internal/util"
)

// Integration test that wires the real search client, fetcher, filter,
// recency index and Discord notifier against canned HTTP servers.

const integrationSearchResponse = `{
  "SearchResult": {
    "Items": [
      {
        "ASIN": "B0INTEG001",
        "DetailPageURL": "https://www.amazon.it/dp/B0INTEG001?tag=someone-else",
        "ItemInfo": {"Title": {"DisplayValue": "Cuffie Bluetooth con cancellazione del rumore"}},
        "Offers": {"Listings": [{
          "Price": {"Amount": 59.99, "Currency": "EUR", "Savings": {"Amount": 40.00, "Percentage": 40}},
          "SavingBasis": {"Amount": 99.99, "Currency": "EUR"}
        }]}
      },
      {
        "ASIN": "B0INTEG002",
        "ItemInfo": {"Title": {"DisplayValue": "Mouse senza fili"}},
        "Offers": {"Listings": [{
          "Price": {"Amount": 19.00, "Currency": "EUR"},
          "SavingBasis": {"Amount": 20.00, "Currency": "EUR"}
        }]}
      },
      {
        "ASIN": "B0INTEG003",
        "ItemInfo": {"Title": {"DisplayValue": "Tastiera meccanica"}}
      }
    ]
  }
}`

func noSleep(context.Context, time.Duration) error { return nil }

func TestIntegration_FullPipeline(t *testing.T) {
	var searches int
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches++
		if !strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256") {
			t.Errorf("Expected a signed request, got %q", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, integrationSearchResponse)
	}))
	defer search.Close()

	var mu sync.Mutex
	var posted []map[string]any
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("Invalid webhook payload: %v", err)
		}
		mu.Lock()
		posted = append(posted, payload)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1"}`)
	}))
	defer webhook.Close()

	rng := util.NewRand(99)
	client := paapi.New(paapi.Config{
		AccessKey:   "AKIDEXAMPLE",
		SecretKey:   "secret",
		PartnerTag:  "offers-21",
		Host:        "webservices.amazon.it",
		Region:      "eu-west-1",
		Marketplace: "www.amazon.it",
		Endpoint:    search.URL,
	})
	store := storage.NewMemoryStore()
	idx := recency.New(store)

	p, err := New(Deps{
		Keywords: staticKeywords{"Electronics": {"cuffie"}},
		Fetcher:  fetcher.New(client, fetcher.Options{MaxPage: 2, ItemCount: 10, MinSavingPercent: 30}, rng, noSleep),
		Filter:   filter.New(filter.Thresholds{MinPercent: 30, MinValue: decimal.NewFromInt(10)}),
		Recency:  idx,
		Selector: selector.New(rng),
		Notifier: notifier.NewDiscord(webhook.URL, notifier.NewFormatter("www.amazon.it", "offers-21", rng)),
	}, Options{LookbackDays: 3, Marketplace: "www.amazon.it", PartnerTag: "offers-21"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	report, err := p.ProcessOffers(ctx)
	if err != nil {
		t.Fatalf("ProcessOffers() error = %v", err)
	}

	if searches != 2 {
		t.Errorf("Expected 2 search pages, got %d", searches)
	}
	if report.Candidates != 3 {
		t.Errorf("Expected 3 unique candidates, got %d", report.Candidates)
	}
	if report.Offers != 1 {
		t.Errorf("Expected 1 offer over the thresholds, got %d", report.Offers)
	}
	if len(report.Recorded) != 1 || report.Recorded[0] != "B0INTEG001" {
		t.Fatalf("Expected B0INTEG001 recorded, got %v", report.Recorded)
	}

	mu.Lock()
	if len(posted) != 1 {
		t.Fatalf("Expected 1 webhook post, got %d", len(posted))
	}
	raw, _ := json.Marshal(posted[0])
	mu.Unlock()
	if !strings.Contains(string(raw), "tag=offers-21") {
		t.Errorf("Expected affiliate tag in the message, got %s", raw)
	}

	// Running again the same day must not repeat the offer.
	again, err := p.ProcessOffers(ctx)
	if err != nil {
		t.Fatalf("Second ProcessOffers() error = %v", err)
	}
	if again.Fresh != 0 || len(again.Delivered) != 0 {
		t.Errorf("Expected no fresh offers on the second run, got %+v", again)
	}

	count, err := idx.SentOn(ctx, idx.Today())
	if err != nil || count != 1 {
		t.Errorf("Expected 1 offer sent today, got %d (err=%v)", count, err)
	}
}
