package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PAAPI_ACCESS_KEY", "AKIDEXAMPLE")
	t.Setenv("PAAPI_SECRET_KEY", "secret")
	t.Setenv("PAAPI_PARTNER_TAG", "offers-21")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "@offers")
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MIN_SAVING_PERCENT", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.PAAPIPartnerTag != "offers-21" {
		t.Errorf("Expected offers-21, got %s", cfg.PAAPIPartnerTag)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected 9090, got %s", cfg.Port)
	}
	if cfg.MinSavingPercent != 20 {
		t.Errorf("Expected 20, got %d", cfg.MinSavingPercent)
	}
	if !cfg.MinSavingValue.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected default MinSavingValue 10, got %s", cfg.MinSavingValue)
	}
	if cfg.MaxPage != 3 || cfg.ItemCount != 8 || cfg.MaxDaysToCheck != 3 {
		t.Errorf("Unexpected paging defaults: page=%d items=%d days=%d", cfg.MaxPage, cfg.ItemCount, cfg.MaxDaysToCheck)
	}
	if cfg.KeywordsMin != 6 || cfg.KeywordsMax != 15 {
		t.Errorf("Expected keyword range 6-15, got %d-%d", cfg.KeywordsMin, cfg.KeywordsMax)
	}
	if cfg.StorageBackend != StorageMemory {
		t.Errorf("Expected memory storage by default, got %s", cfg.StorageBackend)
	}
	if cfg.ActiveFrom != 8*time.Hour || cfg.ActiveUntil != 22*time.Hour+30*time.Minute {
		t.Errorf("Unexpected window %v-%v", cfg.ActiveFrom, cfg.ActiveUntil)
	}
	if cfg.ConnectivityBackoff != 20*time.Minute {
		t.Errorf("Expected 20m backoff, got %s", cfg.ConnectivityBackoff)
	}
	if cfg.Location.String() != "Europe/Rome" {
		t.Errorf("Expected Europe/Rome, got %s", cfg.Location)
	}
	if cfg.HolidayCountry != "IT" || len(cfg.Holidays) != 0 {
		t.Errorf("Expected the Italian calendar and no extra holidays, got %q %v", cfg.HolidayCountry, cfg.Holidays)
	}
}

func TestLoad_HolidaySettings(t *testing.T) {
	setRequired(t)
	t.Setenv("HOLIDAY_COUNTRY", "none")
	t.Setenv("HOLIDAYS", "06-29, 12-07")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.HolidayCountry != "" {
		t.Errorf("Expected no holiday country, got %q", cfg.HolidayCountry)
	}
	if len(cfg.Holidays) != 2 || cfg.Holidays[0] != "06-29" {
		t.Errorf("Expected 2 extra holidays, got %v", cfg.Holidays)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("PAAPI_SECRET_KEY", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() should return an error when PAAPI_SECRET_KEY is not set")
	}
}

func TestLoad_DisabledMinSavingValue(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_SAVING_VALUE", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.MinSavingValueDisabled() {
		t.Error("Expected -1 to disable the absolute savings gate")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"MIN_SAVING_VALUE", "-5"},
		{"MIN_SAVING_VALUE", "ten"},
		{"MAX_PAGE", "11"},
		{"ITEM_COUNT", "0"},
		{"SUBSET_MODE", "2"},
		{"KEYWORDS_MIN", "20"},
		{"ACTIVE_FROM", "25:00"},
		{"CONNECTIVITY_BACKOFF", "soon"},
		{"SKIP_SUNDAY", "maybe"},
		{"HOLIDAYS", "12-25,13-40"},
		{"HOLIDAY_COUNTRY", "XX"},
		{"TIMEZONE", "Mars/Olympus"},
		{"STORAGE_BACKEND", "sqlite"},
		{"NOTIFIER", "carrier-pigeon"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should return error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_BackendRequirements(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"firestore without project", map[string]string{"STORAGE_BACKEND": "firestore", "GOOGLE_CLOUD_PROJECT": ""}, true},
		{"firestore with project", map[string]string{"STORAGE_BACKEND": "firestore", "GOOGLE_CLOUD_PROJECT": "p"}, false},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres", "DATABASE_URL": ""}, true},
		{"redis with url", map[string]string{"STORAGE_BACKEND": "redis", "REDIS_URL": "redis://localhost:6379/0"}, false},
		{"discord without webhook", map[string]string{"NOTIFIER": "discord", "DISCORD_WEBHOOK_URL": ""}, true},
		{"telegram without token", map[string]string{"TELEGRAM_BOT_TOKEN": ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("Expected two trimmed brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadKeywords_Embedded(t *testing.T) {
	t.Setenv("KEYWORDS_CONFIG_PATH", "")

	kw, err := LoadKeywords()
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if kw.Fixed.Size() != 6 {
		t.Errorf("Expected 6 fixed keywords, got %d", kw.Fixed.Size())
	}
	for i, pool := range kw.Pools {
		if pool.Size() == 0 {
			t.Errorf("Pool %d is empty", i)
		}
	}
}

func TestLoadKeywords_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	doc := `
fixed:
  Toys: [lego]
pools:
  - Toys: [lego, puzzle]
  - Toys: [peluche]
  - {}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KEYWORDS_CONFIG_PATH", path)

	kw, err := LoadKeywords()
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if got := kw.Pools[0]["Toys"]; len(got) != 2 || got[1] != "puzzle" {
		t.Errorf("Expected file pool to be used, got %v", got)
	}
	if kw.Pools[2].Size() != 0 {
		t.Errorf("Expected empty third pool, got %v", kw.Pools[2])
	}
}

func TestLoadKeywords_BadFileFallsBack(t *testing.T) {
	t.Setenv("KEYWORDS_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	kw, err := LoadKeywords()
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if kw.Fixed.Size() == 0 {
		t.Error("Expected embedded keywords after fallback")
	}
}

func TestParseKeywords_WrongPoolCount(t *testing.T) {
	_, err := ParseKeywords([]byte("pools:\n  - Toys: [lego]\n"))
	if err == nil {
		t.Error("Expected error for a single pool")
	}
}
