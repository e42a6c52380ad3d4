package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when an offer was already recorded for the same day.
var ErrDuplicate = errors.New("offer already recorded")

// Listing holds the pricing block of a search result. Every field may be missing.
type Listing struct {
	Price               decimal.NullDecimal
	Currency            string
	SavingBasis         decimal.NullDecimal // prior / list price
	SavingBasisCurrency string
	SavingsPercent      int // 0 when the upstream omits it
	SavingsAmount       decimal.NullDecimal
}

// Candidate is a raw product search result before discount filtering.
type Candidate struct {
	ID          string `validate:"required"`
	Title       string
	Categories  []string // root to leaf, at most 4 levels; unknown levels are empty strings
	Brand       string
	ImageURL    string
	DetailURL   string
	Features    []string
	ReleaseDate time.Time
	Listing     *Listing // nil when the item has no offer listing
}

// Category returns the root category or an empty string.
func (c Candidate) Category() string {
	if len(c.Categories) == 0 {
		return ""
	}
	return c.Categories[0]
}

// Offer is a Candidate that met the discount thresholds.
type Offer struct {
	Candidate

	Price           decimal.Decimal `validate:"dnonneg"`
	OldPrice        decimal.Decimal `validate:"dnonneg"`
	Currency        string
	DiscountPercent int `validate:"gte=0,lte=100"`
	ComputedPercent decimal.Decimal
	Savings         decimal.Decimal

	// AI Enriched Fields
	CleanTitle string
}

// DisplayTitle prefers the AI cleaned title when one is present.
func (o Offer) DisplayTitle() string {
	if o.CleanTitle != "" {
		return o.CleanTitle
	}
	return o.Title
}

// KeywordPool maps a category (search index) to its search keywords.
type KeywordPool map[string][]string

// Size returns the total number of keywords in the pool.
func (p KeywordPool) Size() int {
	n := 0
	for _, kws := range p {
		n += len(kws)
	}
	return n
}
