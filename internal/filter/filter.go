// Package filter keeps candidates whose discount clears the configured thresholds.
package filter

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/validator"
)

// DisabledMinValue switches the absolute savings gate off.
var DisabledMinValue = decimal.NewFromInt(-1)

const noDiscountLogBatch = 10

var hundred = decimal.NewFromInt(100)

type Outcome int

const (
	Accepted Outcome = iota
	NoDiscount
	BelowThreshold
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case NoDiscount:
		return "no_discount"
	case BelowThreshold:
		return "below_threshold"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

type Thresholds struct {
	MinPercent int
	MinValue   decimal.Decimal // DisabledMinValue skips the savings gate
}

func (t Thresholds) valueGateDisabled() bool {
	return t.MinValue.Equal(DisabledMinValue)
}

type Filter struct {
	th       Thresholds
	validate *validator.Validator
}

func New(th Thresholds) *Filter {
	return &Filter{th: th, validate: validator.New()}
}

// Classify decides a single candidate. The upstream percentage and the
// percentage computed from prices may disagree; either one clearing
// MinPercent is enough. The savings gate must also pass unless disabled.
func (f *Filter) Classify(c models.Candidate) (models.Offer, Outcome) {
	l := c.Listing
	if l == nil || !l.Price.Valid || !l.SavingBasis.Valid || !l.SavingBasis.Decimal.IsPositive() {
		return models.Offer{}, NoDiscount
	}

	price := l.Price.Decimal
	oldPrice := l.SavingBasis.Decimal
	savings := oldPrice.Sub(price)
	computed := savings.Mul(hundred).DivRound(oldPrice, 4)

	minPercent := decimal.NewFromInt(int64(f.th.MinPercent))
	percentOK := l.SavingsPercent >= f.th.MinPercent || computed.GreaterThanOrEqual(minPercent)
	valueOK := f.th.valueGateDisabled() || savings.GreaterThan(f.th.MinValue)
	if !percentOK || !valueOK {
		return models.Offer{}, BelowThreshold
	}

	currency := l.Currency
	if currency == "" {
		currency = l.SavingBasisCurrency
	}
	offer := models.Offer{
		Candidate:       c,
		Price:           price,
		OldPrice:        oldPrice,
		Currency:        currency,
		DiscountPercent: l.SavingsPercent,
		ComputedPercent: computed,
		Savings:         savings,
	}
	if err := f.validate.ValidateStruct(offer); err != nil {
		slog.Warn("Dropping offer that failed validation", "offer_id", c.ID, "error", err)
		return models.Offer{}, Invalid
	}
	return offer, Accepted
}

// Apply returns the accepted offers in input order.
func (f *Filter) Apply(candidates []models.Candidate) []models.Offer {
	var out []models.Offer
	var noDiscount []string
	counts := map[Outcome]int{}

	for _, c := range candidates {
		offer, outcome := f.Classify(c)
		counts[outcome]++
		switch outcome {
		case Accepted:
			out = append(out, offer)
		case NoDiscount:
			noDiscount = append(noDiscount, c.ID)
			if len(noDiscount) == noDiscountLogBatch {
				slog.Warn("Candidates without discount data", "offer_ids", noDiscount)
				noDiscount = nil
			}
		case BelowThreshold:
			slog.Debug("Candidate below thresholds", "offer_id", c.ID)
		}
	}
	if len(noDiscount) > 0 {
		slog.Warn("Candidates without discount data", "offer_ids", noDiscount)
	}

	slog.Info("Filtered candidates",
		"candidates", len(candidates),
		"accepted", counts[Accepted],
		"no_discount", counts[NoDiscount],
		"below_threshold", counts[BelowThreshold],
		"invalid", counts[Invalid],
	)
	return out
}
