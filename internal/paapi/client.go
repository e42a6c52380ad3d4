// Package paapi is a minimal Product Advertising API 5.0 SearchItems client.
package paapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/tidwall/gjson"
)

const (
	searchPath   = "/paapi5/searchitems"
	searchTarget = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems"
	serviceName  = "ProductAdvertisingAPI"
)

// ErrRateLimited is returned when the API answers 429.
var ErrRateLimited = errors.New("paapi: rate limited")

// DefaultResources are the response groups the pipeline reads.
var DefaultResources = []string{
	"BrowseNodeInfo.BrowseNodes",
	"BrowseNodeInfo.BrowseNodes.Ancestor",
	"Images.Primary.Large",
	"ItemInfo.ByLineInfo",
	"ItemInfo.Features",
	"ItemInfo.ProductInfo",
	"ItemInfo.Title",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
}

// SearchRequest is one page of a keyword search.
type SearchRequest struct {
	Keywords         string
	Category         string // PA-API SearchIndex
	Page             int
	ItemCount        int
	MinSavingPercent int // 0 sends no hint
}

type Config struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Host        string
	Region      string
	Marketplace string
	Endpoint    string // overrides https://Host
}

type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	signer  *v4.Signer
	now     func() time.Time
}

func New(cfg Config) *Client {
	baseURL := "https://" + cfg.Host
	if cfg.Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 20 * time.Second},
		signer:  v4.NewSigner(),
		now:     time.Now,
	}
}

type searchPayload struct {
	Keywords         string   `json:"Keywords"`
	SearchIndex      string   `json:"SearchIndex,omitempty"`
	ItemPage         int      `json:"ItemPage,omitempty"`
	ItemCount        int      `json:"ItemCount,omitempty"`
	MinSavingPercent int      `json:"MinSavingPercent,omitempty"`
	Condition        string   `json:"Condition"`
	PartnerTag       string   `json:"PartnerTag"`
	PartnerType      string   `json:"PartnerType"`
	Marketplace      string   `json:"Marketplace"`
	Resources        []string `json:"Resources"`
}

// Search runs one SearchItems call. A response without items yields an empty slice.
func (c *Client) Search(ctx context.Context, sr SearchRequest) ([]Item, error) {
	body, err := json.Marshal(searchPayload{
		Keywords:         sr.Keywords,
		SearchIndex:      sr.Category,
		ItemPage:         sr.Page,
		ItemCount:        sr.ItemCount,
		MinSavingPercent: sr.MinSavingPercent,
		Condition:        "New",
		PartnerTag:       c.cfg.PartnerTag,
		PartnerType:      "Associates",
		Marketplace:      c.cfg.Marketplace,
		Resources:        DefaultResources,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", searchTarget)

	sum := sha256.Sum256(body)
	creds := aws.Credentials{AccessKeyID: c.cfg.AccessKey, SecretAccessKey: c.cfg.SecretKey}
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), serviceName, c.cfg.Region, c.now()); err != nil {
		return nil, fmt.Errorf("sign search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paapi status: %s, body: %s", resp.Status, string(data))
	}

	return ParseSearchResponse(data)
}

// ParseSearchResponse extracts SearchResult.Items. Missing results are not an error.
func ParseSearchResponse(data []byte) ([]Item, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("paapi: invalid JSON response")
	}
	items := gjson.GetBytes(data, "SearchResult.Items")
	if !items.IsArray() {
		return []Item{}, nil
	}
	out := make([]Item, 0, len(items.Array()))
	for _, raw := range items.Array() {
		out = append(out, Item{raw: raw})
	}
	return out, nil
}
