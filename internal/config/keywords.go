package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/offers-bot/internal/models"
)

//go:embed keywords.yaml
var embeddedKeywords []byte

// Keywords holds the fixed pool and the three weighted pools.
type Keywords struct {
	Fixed models.KeywordPool
	Pools [3]models.KeywordPool
}

type keywordsFile struct {
	Fixed models.KeywordPool   `yaml:"fixed"`
	Pools []models.KeywordPool `yaml:"pools"`
}

// LoadKeywords reads KEYWORDS_CONFIG_PATH when set and falls back to the
// embedded keyword file when the path is unset or unreadable.
func LoadKeywords() (*Keywords, error) {
	if path := os.Getenv("KEYWORDS_CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			kw, parseErr := ParseKeywords(data)
			if parseErr == nil {
				slog.Info("Loaded keywords from file", "path", path)
				return kw, nil
			}
			slog.Warn("Keywords file failed to parse. Using embedded keywords.", "path", path, "error", parseErr)
		} else {
			slog.Warn("Keywords file unreadable. Using embedded keywords.", "path", path, "error", err)
		}
	}
	return ParseKeywords(embeddedKeywords)
}

// ParseKeywords decodes a keyword YAML document. Exactly three pools are required.
func ParseKeywords(data []byte) (*Keywords, error) {
	var f keywordsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}
	if len(f.Pools) != 3 {
		return nil, fmt.Errorf("keywords must define exactly 3 pools, got %d", len(f.Pools))
	}
	kw := &Keywords{Fixed: f.Fixed}
	copy(kw.Pools[:], f.Pools)
	if kw.Fixed.Size() == 0 && kw.Pools[0].Size()+kw.Pools[1].Size()+kw.Pools[2].Size() == 0 {
		return nil, fmt.Errorf("keywords file contains no keywords")
	}
	return kw, nil
}
