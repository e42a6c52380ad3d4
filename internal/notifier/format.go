package notifier

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

const (
	maxBullets     = 3
	minTitleLength = 25
)

var (
	mixPhrases = []string{
		"Ottimo prezzo per questo fantastico prodotto",
		"Calo allettante per questo prodotto di *BRAND*",
		"Ottimo calo, da non perdere assolutamente",
		"Occasione da non farsi scappare!!",
		"Uno sconto del *PERCENTAGE*% da non perdere.",
		"Se vuoi risparmiare, questo è il momento giusto!",
	}
	bigDiscountPhrases = []string{
		"<b>Bomba</b> decisamente da non perdere.",
		"Uno sconto decisamente da non perdere",
		"Sconto importante per questo prodotto di *BRAND*",
		"Con uno sconto del *PERCENTAGE*% non ci penserei 2 volte ad acquistarlo.",
		"Questa è davvero una bomba da non perdere!",
	}
	goodDiscountPhrases = []string{
		"Piccola <b>Bombetta</b> da non perdere.",
		"Sconto non da poco per questo prodotto di *BRAND*",
		"Sconto da non perdere per questo prodotto di *BRAND*",
	}

	warnEmoji = []string{"💣", "🧨", "⚠️"}
	hotEmoji  = []string{"🆘", "🔥"}
	cartEmoji = []string{"🛒", "🚚", "📦"}

	currencySymbols = map[string]string{
		"AUD": "A$", "BRL": "R$", "CAD": "CA$", "EGP": "E£", "EUR": "€", "GBP": "£",
		"INR": "₹", "JPY": "¥", "MXN": "MX$", "PLN": "zł", "SGD": "S$", "SAR": "﷼",
		"SEK": "kr", "TRY": "₺", "AED": "د.إ", "USD": "$",
	}
)

// Button is an inline link button shown under a message.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Message is a rendered offer. HTML is for Telegram; the plain fields feed embeds.
type Message struct {
	Title       string
	Emoji       string
	Bullets     []string // HTML safe
	PriceLine   string
	SavingsLine string
	Percent     int
	Link        string
	ImageURL    string
	Marketplace string
	HTML        string
	Buttons     []Button
}

type Formatter struct {
	marketplace string
	partnerTag  string
	rng         util.Rand
}

func NewFormatter(marketplace, partnerTag string, rng util.Rand) *Formatter {
	return &Formatter{marketplace: marketplace, partnerTag: partnerTag, rng: rng}
}

func (f *Formatter) Format(o models.Offer) Message {
	title, rest := shortenTitle(o.DisplayTitle())
	percent := displayPercent(o)
	symbol := currencySymbol(o.Currency)

	m := Message{
		Title:       title,
		Emoji:       f.titleEmoji(percent),
		Bullets:     f.bullets(o, rest, percent),
		Percent:     percent,
		Link:        f.link(o),
		ImageURL:    o.ImageURL,
		Marketplace: marketplaceFlag(f.marketplace),
		PriceLine:   fmt.Sprintf("%s%s invece di %s%s", formatAmount(o.Price), symbol, formatAmount(o.OldPrice), symbol),
		SavingsLine: fmt.Sprintf("Risparmi %s%s (%d%%)", formatAmount(o.Savings), symbol, percent),
	}
	m.Buttons = []Button{
		{Text: "👑 Prime GRATIS", URL: f.primeLink()},
		{Text: "📲 APRI IN APP", URL: m.Link},
	}
	m.HTML = f.renderHTML(m, symbol, o)
	return m
}

func (f *Formatter) renderHTML(m Message, symbol string, o models.Offer) string {
	var b strings.Builder
	if m.Emoji != "" {
		fmt.Fprintf(&b, "%s <b>%s</b> %s\n\n", m.Emoji, html.EscapeString(m.Title), m.Emoji)
	} else {
		fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(m.Title))
	}
	for _, bullet := range m.Bullets {
		fmt.Fprintf(&b, "▫️ %s\n", bullet)
	}

	cart := pick(f.rng, cartEmoji)
	if m.Marketplace != "" {
		fmt.Fprintf(&b, "\n%s Amazon <b>%s</b>\n", cart, m.Marketplace)
	} else {
		fmt.Fprintf(&b, "\n%s Amazon\n", cart)
	}

	if m.Percent > 0 {
		fmt.Fprintf(&b, "💶 <b>%s%s</b> invece di %s%s\n", formatAmount(o.Price), symbol, formatAmount(o.OldPrice), symbol)
		fmt.Fprintf(&b, "📈 <b>Risparmi %s%s (%d%%)</b>", formatAmount(o.Savings), symbol, m.Percent)
	} else {
		fmt.Fprintf(&b, "💶 Il prezzo è di: <b>%s%s</b>", formatAmount(o.Price), symbol)
	}

	fmt.Fprintf(&b, "\n\n\n➡️ <a href=\"%s\"><b>Apri su Amazon</b></a>\n", html.EscapeString(m.Link))
	return b.String()
}

func (f *Formatter) titleEmoji(percent int) string {
	switch {
	case percent < 35:
		return ""
	case percent < 50:
		return pick(f.rng, warnEmoji)
	default:
		return pick(f.rng, hotEmoji)
	}
}

// bullets picks short feature lines and tops them up with a stock phrase.
func (f *Formatter) bullets(o models.Offer, fromTitle []string, percent int) []string {
	var candidates []string
	for _, feature := range o.Features {
		if line, ok := featureLine(feature); ok {
			candidates = append(candidates, line)
		}
	}
	candidates = append(candidates, fromTitle...)

	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		n := utf8.RuneCountInString(c)
		if n < 15 || n >= 40 || strings.EqualFold(c, o.Brand) {
			continue
		}
		out = append(out, html.EscapeString(capitalize(c)))
		if len(out) == maxBullets {
			return out
		}
	}
	return append(out, f.stockPhrase(o.Brand, percent))
}

func (f *Formatter) stockPhrase(brand string, percent int) string {
	phrases := append([]string(nil), mixPhrases...)
	switch {
	case percent > 65:
		phrases = append(phrases, bigDiscountPhrases...)
	case percent > 35:
		phrases = append(phrases, goodDiscountPhrases...)
	}
	p := pick(f.rng, phrases)
	if brand == "" {
		brand = "questo marchio"
	}
	p = strings.ReplaceAll(p, "*BRAND*", html.EscapeString(brand))
	return strings.ReplaceAll(p, "*PERCENTAGE*", fmt.Sprint(percent))
}

func (f *Formatter) link(o models.Offer) string {
	if o.DetailURL != "" {
		tagged, _ := util.EnsureAffiliateTag(o.DetailURL, f.partnerTag)
		return tagged
	}
	return util.ProductLink(f.marketplace, o.ID, f.partnerTag)
}

func (f *Formatter) primeLink() string {
	host := strings.TrimSuffix(strings.TrimPrefix(f.marketplace, "https://"), "/")
	return fmt.Sprintf("https://%s/provaprime?tag=%s", host, f.partnerTag)
}

// shortenTitle drops brackets, then joins comma separated parts until the
// title is long enough. Unused parts are returned for bullets.
func shortenTitle(title string) (string, []string) {
	cleaned := strings.NewReplacer("(", "", ")", "", "[", "", "]", "").Replace(title)
	parts := strings.Split(cleaned, ", ")
	short := parts[0]
	rest := parts[1:]
	for utf8.RuneCountInString(short) < minTitleLength && len(rest) > 0 {
		short += " - " + rest[0]
		rest = rest[1:]
	}
	return strings.TrimSpace(short), rest
}

// featureLine cleans a feature bullet and cuts long ones at the first sentence or clause.
func featureLine(feature string) (string, bool) {
	s := strings.NewReplacer("(", "", ")", "", "[", "", "]", "", " – ", " - ").Replace(removeEmoji(feature))
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n > 10 && n < 40:
		return s, true
	case n >= 40:
		for _, sep := range []string{". ", ", ", ";"} {
			head, _, _ := strings.Cut(s, sep)
			if utf8.RuneCountInString(head) < 40 {
				return head, true
			}
		}
	}
	return "", false
}

func removeEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F000,
			r >= 0x2600 && r <= 0x27BF,
			r >= 0x2B00 && r <= 0x2BFF,
			r == 0xFE0F, r == 0x200D:
			return -1
		case strings.ContainsRune("¹²³⁴⁵⁶⁷⁸⁹⁰", r):
			return -1
		}
		return r
	}, s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// displayPercent prefers the upstream percentage and falls back to the computed one.
func displayPercent(o models.Offer) int {
	if o.DiscountPercent > 0 {
		return o.DiscountPercent
	}
	return int(o.ComputedPercent.Round(0).IntPart())
}

// formatAmount renders 12.5 as "12,50".
func formatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func currencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

// marketplaceFlag turns "www.amazon.it" into the Italian flag emoji.
func marketplaceFlag(marketplace string) string {
	host := strings.TrimSuffix(strings.TrimPrefix(marketplace, "https://"), "/")
	tld := host[strings.LastIndex(host, ".")+1:]
	switch tld {
	case "com":
		tld = "us"
	case "uk":
		tld = "gb"
	}
	if len(tld) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(tld) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + c - 'A')
	}
	return b.String()
}

func pick(r util.Rand, options []string) string {
	return options[r.IntN(len(options))]
}
