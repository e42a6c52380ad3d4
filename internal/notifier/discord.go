package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/offers-bot/internal/models"
)

const (
	colorColdDeal    = 3092790  // #2F3136
	colorWarmDeal    = 16753920 // #FFA500
	colorHotDeal     = 16711680 // #FF0000
	colorVeryHotDeal = 16776960 // #FFFF00

	discountThresholdWarm    = 35
	discountThresholdHot     = 50
	discountThresholdVeryHot = 65

	discordSendPacing = 2 * time.Second
)

type DiscordClient struct {
	httpSender
	webhookURL string
	formatter  *Formatter
	now        func() time.Time
}

func NewDiscord(webhookURL string, formatter *Formatter) *DiscordClient {
	return &DiscordClient{
		httpSender: newHTTPSender(discordSendPacing),
		webhookURL: webhookURL,
		formatter:  formatter,
		now:        time.Now,
	}
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	URL         string                `json:"url,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Deliver posts the offer as a single webhook embed.
func (c *DiscordClient) Deliver(ctx context.Context, offer models.Offer) error {
	if c.webhookURL == "" {
		return errors.New("discord webhook URL not configured")
	}
	embed := formatOfferToEmbed(c.formatter.Format(offer), c.now())

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	body, err := c.postJSON(ctx, parsedURL.String(), discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord webhook for %s: %w", offer.ID, err)
	}

	var msgResponse discordMessageResponse
	if err := json.Unmarshal(body, &msgResponse); err != nil {
		return fmt.Errorf("decode discord response for %s: %w", offer.ID, err)
	}
	slog.Debug("Discord message sent", "asin", offer.ID, "message_id", msgResponse.ID)
	return nil
}

func formatOfferToEmbed(msg Message, now time.Time) discordEmbed {
	title := msg.Title
	if msg.Emoji != "" {
		title = msg.Emoji + " " + title
	}

	var description strings.Builder
	for _, b := range msg.Bullets {
		description.WriteString("▫️ " + stripTags(b) + "\n")
	}

	footer := "Amazon"
	if msg.Marketplace != "" {
		footer += " " + msg.Marketplace
	}

	return discordEmbed{
		Title:       title,
		URL:         msg.Link,
		Description: strings.TrimSuffix(description.String(), "\n"),
		Timestamp:   now.UTC().Format(time.RFC3339),
		Color:       discountColor(msg.Percent),
		Thumbnail:   discordEmbedThumbnail{URL: msg.ImageURL},
		Fields: []discordEmbedField{
			{Name: "Prezzo", Value: msg.PriceLine, Inline: true},
			{Name: "Sconto", Value: msg.SavingsLine, Inline: true},
		},
		Footer: discordEmbedFooter{Text: footer},
	}
}

func discountColor(percent int) int {
	switch {
	case percent >= discountThresholdVeryHot:
		return colorVeryHotDeal
	case percent >= discountThresholdHot:
		return colorHotDeal
	case percent >= discountThresholdWarm:
		return colorWarmDeal
	}
	return colorColdDeal
}

// stripTags renders a chat HTML fragment as the plain text Discord expects.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
