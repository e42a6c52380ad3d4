package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pauljones0/offers-bot/internal/models"
)

// generator is the part of genai.Models the cleaner calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type TitleCleaner struct {
	models generator
	model  string
}

type titleResult struct {
	CleanTitle string `json:"clean_title"`
}

var titleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"clean_title": {
			Type:        genai.TypeString,
			Description: "A concise 4-12 word product name in the same language as the input. Keep brand and model, drop keyword stuffing, sizes lists and marketing fluff.",
		},
	},
	Required: []string{"clean_title"},
}

// NewTitleCleaner returns nil when apiKey is empty.
func NewTitleCleaner(ctx context.Context, apiKey, model string) (*TitleCleaner, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &TitleCleaner{models: client.Models, model: model}, nil
}

// CleanTitle asks the model for a short display title. A nil cleaner returns "".
func (c *TitleCleaner) CleanTitle(ctx context.Context, offer models.Offer) (string, error) {
	if c == nil || c.models == nil {
		return "", nil // Graceful degradation
	}

	prompt := fmt.Sprintf(`
Product listing:
Title: %q
Brand: %q
Features: %q

Task: write a clean, concise title for a deal post. Keep the brand and the product type.
Output JSON adhering to the schema.
`, offer.Title, offer.Brand, strings.Join(offer.Features, " | "))

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
		ResponseSchema:   titleSchema,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no text part in response")
	}
	// Clean up potential markdown formatting just in case
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var result titleResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	return strings.TrimSpace(result.CleanTitle), nil
}
