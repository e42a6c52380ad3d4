package paapi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/pauljones0/offers-bot/internal/models"
)

const maxCategoryLevels = 4

// Item is one raw search result. Every accessor returns ok=false for a
// missing or mistyped field; absence is never an error.
type Item struct {
	raw gjson.Result
}

// ParseItem wraps a single JSON item document.
func ParseItem(doc string) Item {
	return Item{raw: gjson.Parse(doc)}
}

func (it Item) lookup(path string) (gjson.Result, bool) {
	r := it.raw.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		return r, false
	}
	return r, true
}

func (it Item) String(path string) (string, bool) {
	r, ok := it.lookup(path)
	if !ok || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (it Item) Decimal(path string) (decimal.Decimal, bool) {
	r, ok := it.lookup(path)
	if !ok || (r.Type != gjson.Number && r.Type != gjson.String) {
		return decimal.Decimal{}, false
	}
	raw := r.Raw
	if r.Type == gjson.String {
		raw = r.String()
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (it Item) Int(path string) (int, bool) {
	r, ok := it.lookup(path)
	if !ok || r.Type != gjson.Number {
		return 0, false
	}
	return int(r.Int()), true
}

func (it Item) Strings(path string) ([]string, bool) {
	r, ok := it.lookup(path)
	if !ok || !r.IsArray() {
		return nil, false
	}
	var out []string
	for _, v := range r.Array() {
		if v.Type == gjson.String {
			out = append(out, v.String())
		}
	}
	return out, true
}

func (it Item) Time(path string) (time.Time, bool) {
	s, ok := it.String(path)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ASIN returns the product identifier.
func (it Item) ASIN() (string, bool) {
	id, ok := it.String("ASIN")
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

// Categories walks the first browse node up its ancestors and returns the
// chain root first, truncated to four levels.
func (it Item) Categories() []string {
	node, ok := it.lookup("BrowseNodeInfo.BrowseNodes.0")
	if !ok {
		return nil
	}
	var leafFirst []string
	for node.Exists() {
		name := node.Get("ContextFreeName").String()
		if name == "" {
			name = node.Get("DisplayName").String()
		}
		leafFirst = append(leafFirst, name)
		node = node.Get("Ancestor")
	}
	out := make([]string, 0, maxCategoryLevels)
	for i := len(leafFirst) - 1; i >= 0 && len(out) < maxCategoryLevels; i-- {
		out = append(out, leafFirst[i])
	}
	return out
}

// Candidate converts the item. ok is false when the item has no ASIN.
func (it Item) Candidate() (models.Candidate, bool) {
	id, ok := it.ASIN()
	if !ok {
		return models.Candidate{}, false
	}

	c := models.Candidate{ID: id, Categories: it.Categories()}
	c.Title, _ = it.String("ItemInfo.Title.DisplayValue")
	c.Brand, _ = it.String("ItemInfo.ByLineInfo.Brand.DisplayValue")
	c.ImageURL, _ = it.String("Images.Primary.Large.URL")
	c.DetailURL, _ = it.String("DetailPageURL")
	c.Features, _ = it.Strings("ItemInfo.Features.DisplayValues")
	c.ReleaseDate, _ = it.Time("ItemInfo.ProductInfo.ReleaseDate.DisplayValue")

	if _, ok := it.lookup("Offers.Listings.0"); ok {
		l := &models.Listing{}
		l.Price = nullDecimal(it.Decimal("Offers.Listings.0.Price.Amount"))
		l.Currency, _ = it.String("Offers.Listings.0.Price.Currency")
		l.SavingBasis = nullDecimal(it.Decimal("Offers.Listings.0.SavingBasis.Amount"))
		l.SavingBasisCurrency, _ = it.String("Offers.Listings.0.SavingBasis.Currency")
		l.SavingsPercent, _ = it.Int("Offers.Listings.0.Price.Savings.Percentage")
		l.SavingsAmount = nullDecimal(it.Decimal("Offers.Listings.0.Price.Savings.Amount"))
		c.Listing = l
	}
	return c, true
}

func nullDecimal(d decimal.Decimal, ok bool) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}
