package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/schedule"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
	StorageRedis     = "redis"
)

// Notifiers accepted by NOTIFIER.
const (
	NotifierTelegram = "telegram"
	NotifierDiscord  = "discord"
)

// DisabledMinSavingValue turns the absolute savings gate off.
const DisabledMinSavingValue = -1

// NoHolidayCountry turns the national holiday calendar off.
const NoHolidayCountry = "none"

type Config struct {
	PAAPIAccessKey   string
	PAAPISecretKey   string
	PAAPIPartnerTag  string
	PAAPIHost        string
	PAAPIRegion      string
	PAAPIMarketplace string

	MinSavingPercent int
	MinSavingValue   decimal.Decimal
	MaxPage          int
	ItemCount        int
	MaxDaysToCheck   int
	SubsetMode       int
	KeywordsMin      int
	KeywordsMax      int

	StorageBackend           string
	ProjectID                string
	FirestoreCredentialsFile string
	DatabaseURL              string
	RedisURL                 string

	Notifier          string
	TelegramBotToken  string
	TelegramChannelID string
	DiscordWebhookURL string

	GeminiAPIKey string
	GeminiModel  string

	KafkaBrokers       []string
	KafkaTopic         string
	ElasticsearchAddr  string
	ElasticsearchIndex string

	CycleSchedule       string
	ActiveFrom          time.Duration // offset from local midnight
	ActiveUntil         time.Duration
	SkipSunday          bool
	HolidayCountry      string   // ISO code of the national calendar, empty for none
	Holidays            []string // extra MM-DD dates
	Location            *time.Location
	ConnectivityBackoff time.Duration

	Port string
}

// MinSavingValueDisabled reports whether MIN_SAVING_VALUE is the -1 sentinel.
func (c *Config) MinSavingValueDisabled() bool {
	return c.MinSavingValue.Equal(decimal.NewFromInt(DisabledMinSavingValue))
}

func Load() (*Config, error) {
	cfg := &Config{
		PAAPIAccessKey:           os.Getenv("PAAPI_ACCESS_KEY"),
		PAAPISecretKey:           os.Getenv("PAAPI_SECRET_KEY"),
		PAAPIPartnerTag:          os.Getenv("PAAPI_PARTNER_TAG"),
		PAAPIHost:                getEnv("PAAPI_HOST", "webservices.amazon.it"),
		PAAPIRegion:              getEnv("PAAPI_REGION", "eu-west-1"),
		PAAPIMarketplace:         getEnv("PAAPI_MARKETPLACE", "www.amazon.it"),
		StorageBackend:           strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		ProjectID:                os.Getenv("GOOGLE_CLOUD_PROJECT"),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		Notifier:                 strings.ToLower(getEnv("NOTIFIER", NotifierTelegram)),
		TelegramBotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChannelID:        os.Getenv("TELEGRAM_CHANNEL_ID"),
		DiscordWebhookURL:        os.Getenv("DISCORD_WEBHOOK_URL"),
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiModel:              getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		KafkaBrokers:             splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:               getEnv("KAFKA_TOPIC", "offers_sent"),
		ElasticsearchAddr:        os.Getenv("ELASTICSEARCH_ADDR"),
		ElasticsearchIndex:       getEnv("ELASTICSEARCH_INDEX", "offers"),
		CycleSchedule:            os.Getenv("CYCLE_SCHEDULE"),
		Port:                     getEnv("PORT", "8080"),
	}

	if cfg.PAAPIAccessKey == "" || cfg.PAAPISecretKey == "" || cfg.PAAPIPartnerTag == "" {
		return nil, fmt.Errorf("PAAPI_ACCESS_KEY, PAAPI_SECRET_KEY and PAAPI_PARTNER_TAG environment variables are required")
	}

	var err error
	ints := []struct {
		key      string
		def      int
		min, max int
		dst      *int
	}{
		{"MIN_SAVING_PERCENT", 10, 0, 100, &cfg.MinSavingPercent},
		{"MAX_PAGE", 3, 1, 10, &cfg.MaxPage},
		{"ITEM_COUNT", 8, 1, 10, &cfg.ItemCount},
		{"MAX_DAYS_TO_CHECK", 3, 1, 366, &cfg.MaxDaysToCheck},
		{"SUBSET_MODE", 1, 0, 1, &cfg.SubsetMode},
		{"KEYWORDS_MIN", 6, 0, 1000, &cfg.KeywordsMin},
		{"KEYWORDS_MAX", 15, 0, 1000, &cfg.KeywordsMax},
	}
	for _, spec := range ints {
		if *spec.dst, err = getInt(spec.key, spec.def, spec.min, spec.max); err != nil {
			return nil, err
		}
	}
	if cfg.KeywordsMin > cfg.KeywordsMax {
		return nil, fmt.Errorf("invalid KEYWORDS_MIN %d: greater than KEYWORDS_MAX %d", cfg.KeywordsMin, cfg.KeywordsMax)
	}

	minValue := getEnv("MIN_SAVING_VALUE", "10")
	cfg.MinSavingValue, err = decimal.NewFromString(minValue)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_SAVING_VALUE %q: %w", minValue, err)
	}
	if cfg.MinSavingValue.IsNegative() && !cfg.MinSavingValueDisabled() {
		return nil, fmt.Errorf("invalid MIN_SAVING_VALUE %q: must be >= 0 or %d", minValue, DisabledMinSavingValue)
	}

	if cfg.ActiveFrom, err = getClock("ACTIVE_FROM", "08:00"); err != nil {
		return nil, err
	}
	if cfg.ActiveUntil, err = getClock("ACTIVE_UNTIL", "22:30"); err != nil {
		return nil, err
	}
	if cfg.ActiveFrom > cfg.ActiveUntil {
		return nil, fmt.Errorf("invalid ACTIVE_FROM: must not be after ACTIVE_UNTIL")
	}

	skipSunday := getEnv("SKIP_SUNDAY", "true")
	cfg.SkipSunday, err = strconv.ParseBool(skipSunday)
	if err != nil {
		return nil, fmt.Errorf("invalid SKIP_SUNDAY %q: %w", skipSunday, err)
	}

	cfg.HolidayCountry = strings.ToUpper(getEnv("HOLIDAY_COUNTRY", "IT"))
	if strings.EqualFold(cfg.HolidayCountry, NoHolidayCountry) {
		cfg.HolidayCountry = ""
	} else if !schedule.SupportedHolidayCountry(cfg.HolidayCountry) {
		return nil, fmt.Errorf("invalid HOLIDAY_COUNTRY %q", cfg.HolidayCountry)
	}

	cfg.Holidays = splitList(os.Getenv("HOLIDAYS"))
	for _, h := range cfg.Holidays {
		if _, err := time.Parse("01-02", h); err != nil {
			return nil, fmt.Errorf("invalid HOLIDAYS entry %q: %w", h, err)
		}
	}

	tz := getEnv("TIMEZONE", "Europe/Rome")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	backoff := getEnv("CONNECTIVITY_BACKOFF", "20m")
	cfg.ConnectivityBackoff, err = time.ParseDuration(backoff)
	if err != nil {
		return nil, fmt.Errorf("invalid CONNECTIVITY_BACKOFF %q: %w", backoff, err)
	}

	if err := cfg.validateBackends(); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		slog.Info("GEMINI_API_KEY not set, titles will not be rewritten")
	}

	return cfg, nil
}

func (c *Config) validateBackends() error {
	switch c.StorageBackend {
	case StorageMemory:
		slog.Warn("STORAGE_BACKEND is memory, sent offers are forgotten on restart")
	case StorageFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for STORAGE_BACKEND=%s", c.StorageBackend)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORAGE_BACKEND=%s", c.StorageBackend)
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for STORAGE_BACKEND=%s", c.StorageBackend)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.Notifier {
	case NotifierTelegram:
		if c.TelegramBotToken == "" || c.TelegramChannelID == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID are required for NOTIFIER=%s", c.Notifier)
		}
	case NotifierDiscord:
		if c.DiscordWebhookURL == "" {
			return fmt.Errorf("DISCORD_WEBHOOK_URL is required for NOTIFIER=%s", c.Notifier)
		}
	default:
		return fmt.Errorf("invalid NOTIFIER %q", c.Notifier)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def, min, max int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("invalid %s %q: must be between %d and %d", key, v, min, max)
	}
	return parsed, nil
}

func getClock(key, def string) (time.Duration, error) {
	v := getEnv(key, def)
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
