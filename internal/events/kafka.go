// Package events publishes sent-offer events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/models"
)

const EventOfferSent = "offer.sent"

// OfferSentEvent is the JSON value written for every delivered offer.
type OfferSentEvent struct {
	EventID         string          `json:"event_id"`
	Type            string          `json:"type"`
	RunID           string          `json:"run_id,omitempty"`
	OfferID         string          `json:"offer_id"`
	Title           string          `json:"title"`
	Category        string          `json:"category,omitempty"`
	Price           decimal.Decimal `json:"price"`
	OldPrice        decimal.Decimal `json:"old_price"`
	Savings         decimal.Decimal `json:"savings"`
	Currency        string          `json:"currency"`
	DiscountPercent int             `json:"discount_percent"`
	Link            string          `json:"link,omitempty"`
	SentOn          string          `json:"sent_on"`
	SentAt          time.Time       `json:"sent_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	newID  func() string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		Balancer:    &kafka.Hash{},
		MaxAttempts: 3,
	})
	return &KafkaPublisher{writer: w, newID: uuid.NewString}
}

// OfferSent writes one event keyed by the offer ID so all sends of a product land on one partition.
func (p *KafkaPublisher) OfferSent(ctx context.Context, sent models.SentOffer) error {
	o := sent.Offer
	event := OfferSentEvent{
		EventID:         p.newID(),
		Type:            EventOfferSent,
		RunID:           sent.RunID,
		OfferID:         o.ID,
		Title:           o.DisplayTitle(),
		Category:        o.Category(),
		Price:           o.Price,
		OldPrice:        o.OldPrice,
		Savings:         o.Savings,
		Currency:        o.Currency,
		DiscountPercent: o.DiscountPercent,
		Link:            sent.Link,
		SentOn:          sent.Day.String(),
		SentAt:          sent.SentAt.UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(EventOfferSent)},
		},
		Time: sent.SentAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event for %s: %w", EventOfferSent, o.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
