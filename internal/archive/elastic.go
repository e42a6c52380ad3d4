// Package archive keeps a searchable copy of every sent offer in Elasticsearch.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/models"
)

// OfferDocument is the indexed form of a sent offer.
type OfferDocument struct {
	OfferID         string          `json:"offer_id"`
	Title           string          `json:"title"`
	Brand           string          `json:"brand,omitempty"`
	Categories      []string        `json:"categories,omitempty"`
	Price           decimal.Decimal `json:"price"`
	OldPrice        decimal.Decimal `json:"old_price"`
	Savings         decimal.Decimal `json:"savings"`
	Currency        string          `json:"currency"`
	DiscountPercent int             `json:"discount_percent"`
	ComputedPercent decimal.Decimal `json:"computed_percent"`
	ImageURL        string          `json:"image_url,omitempty"`
	Link            string          `json:"link,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
	SentOn          string          `json:"sent_on"`
	SentAt          time.Time       `json:"sent_at"`
}

type ElasticArchive struct {
	es    *elasticsearch.Client
	index string
}

func NewElastic(addr, index string) (*ElasticArchive, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ElasticArchive{es: es, index: index}, nil
}

// Ping checks if Elasticsearch is available.
func (a *ElasticArchive) Ping(ctx context.Context) error {
	res, err := a.es.Ping(a.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// DocumentID is unique per offer and day, so a resend on a later day is a new document.
func DocumentID(s models.SentOffer) string {
	return s.Day.String() + "-" + s.Offer.ID
}

// OfferSent indexes the sent offer.
func (a *ElasticArchive) OfferSent(ctx context.Context, s models.SentOffer) error {
	o := s.Offer
	doc := OfferDocument{
		OfferID:         o.ID,
		Title:           o.DisplayTitle(),
		Brand:           o.Brand,
		Categories:      o.Categories,
		Price:           o.Price,
		OldPrice:        o.OldPrice,
		Savings:         o.Savings,
		Currency:        o.Currency,
		DiscountPercent: o.DiscountPercent,
		ComputedPercent: o.ComputedPercent,
		ImageURL:        o.ImageURL,
		Link:            s.Link,
		RunID:           s.RunID,
		SentOn:          s.Day.String(),
		SentAt:          s.SentAt.UTC(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: DocumentID(s),
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, a.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}
