package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/pauljones0/offers-bot/internal/models"
)

const (
	telegramAPI        = "https://api.telegram.org"
	maxCaptionLength   = 1024
	telegramParseMode  = "HTML"
	telegramSendPacing = 3 * time.Second
)

type inlineKeyboard struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

type sendPhotoRequest struct {
	ChatID      string         `json:"chat_id"`
	Photo       string         `json:"photo"`
	Caption     string         `json:"caption"`
	ParseMode   string         `json:"parse_mode"`
	ReplyMarkup inlineKeyboard `json:"reply_markup"`
}

type sendMessageRequest struct {
	ChatID      string         `json:"chat_id"`
	Text        string         `json:"text"`
	ParseMode   string         `json:"parse_mode"`
	ReplyMarkup inlineKeyboard `json:"reply_markup"`
}

// TelegramClient posts offers to a channel through the Bot API.
type TelegramClient struct {
	httpSender
	apiURL    string
	chatID    string
	formatter *Formatter
}

func NewTelegram(token, chatID string, formatter *Formatter) *TelegramClient {
	return &TelegramClient{
		httpSender: newHTTPSender(telegramSendPacing),
		apiURL:     fmt.Sprintf("%s/bot%s", telegramAPI, token),
		chatID:     chatID,
		formatter:  formatter,
	}
}

// Deliver sends the offer as a photo with caption, or as a text message
// when there is no image or the caption would be too long.
func (c *TelegramClient) Deliver(ctx context.Context, offer models.Offer) error {
	if c.chatID == "" {
		return errors.New("telegram channel ID not configured")
	}
	msg := c.formatter.Format(offer)
	markup := inlineKeyboard{InlineKeyboard: [][]Button{{msg.Buttons[0]}, {msg.Buttons[1]}}}

	var (
		method  string
		payload any
	)
	if msg.ImageURL != "" && utf8.RuneCountInString(msg.HTML) <= maxCaptionLength {
		method = "sendPhoto"
		payload = sendPhotoRequest{ChatID: c.chatID, Photo: msg.ImageURL, Caption: msg.HTML, ParseMode: telegramParseMode, ReplyMarkup: markup}
	} else {
		text := msg.HTML
		if msg.ImageURL != "" {
			// zero width joiner link keeps the image as the preview
			text = fmt.Sprintf("<a href=\"%s\">&#8205;</a>", msg.ImageURL) + text
		}
		method = "sendMessage"
		payload = sendMessageRequest{ChatID: c.chatID, Text: text, ParseMode: telegramParseMode, ReplyMarkup: markup}
	}

	body, err := c.postJSON(ctx, c.apiURL+"/"+method, payload)
	if err != nil {
		return fmt.Errorf("telegram %s for %s: %w", method, offer.ID, err)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("ok").Bool() {
		return fmt.Errorf("telegram %s for %s not ok: %s", method, offer.ID, res.Get("description").String())
	}

	slog.Debug("Telegram message sent", "asin", offer.ID, "method", method, "message_id", res.Get("result.message_id").Int())
	return nil
}
