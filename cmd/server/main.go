package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/offers-bot/internal/ai"
	"github.com/pauljones0/offers-bot/internal/archive"
	"github.com/pauljones0/offers-bot/internal/config"
	"github.com/pauljones0/offers-bot/internal/events"
	"github.com/pauljones0/offers-bot/internal/fetcher"
	"github.com/pauljones0/offers-bot/internal/filter"
	"github.com/pauljones0/offers-bot/internal/keywords"
	"github.com/pauljones0/offers-bot/internal/logger"
	"github.com/pauljones0/offers-bot/internal/notifier"
	"github.com/pauljones0/offers-bot/internal/paapi"
	"github.com/pauljones0/offers-bot/internal/processor"
	"github.com/pauljones0/offers-bot/internal/recency"
	"github.com/pauljones0/offers-bot/internal/schedule"
	"github.com/pauljones0/offers-bot/internal/selector"
	"github.com/pauljones0/offers-bot/internal/storage"
	"github.com/pauljones0/offers-bot/internal/util"
)

type Server struct {
	processor processor.Processor
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	slog.SetDefault(logger.New("offers-bot"))

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

func run() error {
	slog.Info("Starting offers bot...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	kw, err := config.LoadKeywords()
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	rng := util.NewTimeSeededRand()

	p, cleanup, err := buildProcessor(ctx, cfg, kw, store, rng)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &Server{processor: p}
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening on port", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildProcessor wires the pipeline. cleanup closes the optional observers.
func buildProcessor(ctx context.Context, cfg *config.Config, kw *config.Keywords, store storage.Backend, rng util.Rand) (*processor.OfferProcessor, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Failed to close dependency", "error", err)
			}
		}
	}

	source := keywords.NewSource(kw.Fixed, kw.Pools, cfg.SubsetMode == 1,
		keywords.Range{Min: cfg.KeywordsMin, Max: cfg.KeywordsMax}, keywords.NewSampler(rng))

	client := paapi.New(paapi.Config{
		AccessKey:   cfg.PAAPIAccessKey,
		SecretKey:   cfg.PAAPISecretKey,
		PartnerTag:  cfg.PAAPIPartnerTag,
		Host:        cfg.PAAPIHost,
		Region:      cfg.PAAPIRegion,
		Marketplace: cfg.PAAPIMarketplace,
	})
	f := fetcher.New(client, fetcher.Options{
		MaxPage:          cfg.MaxPage,
		ItemCount:        cfg.ItemCount,
		MinSavingPercent: cfg.MinSavingPercent,
	}, rng, fetcher.Sleep)

	minValue := cfg.MinSavingValue
	if cfg.MinSavingValueDisabled() {
		minValue = filter.DisabledMinValue
	}

	formatter := notifier.NewFormatter(cfg.PAAPIMarketplace, cfg.PAAPIPartnerTag, rng)
	var n processor.OfferNotifier
	switch cfg.Notifier {
	case config.NotifierDiscord:
		n = notifier.NewDiscord(cfg.DiscordWebhookURL, formatter)
	default:
		n = notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChannelID, formatter)
	}

	var observers []processor.Observer
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		observers = append(observers, pub)
		closers = append(closers, pub.Close)
		slog.Info("Publishing sent offers to Kafka", "topic", cfg.KafkaTopic)
	}
	if cfg.ElasticsearchAddr != "" {
		es, err := archive.NewElastic(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init elasticsearch: %w", err)
		}
		if err := es.Ping(ctx); err != nil {
			slog.Warn("Elasticsearch not reachable, archiving anyway", "error", err)
		}
		observers = append(observers, es)
		slog.Info("Archiving sent offers to Elasticsearch", "index", cfg.ElasticsearchIndex)
	}

	deps := processor.Deps{
		Keywords:  source,
		Fetcher:   f,
		Filter:    filter.New(filter.Thresholds{MinPercent: cfg.MinSavingPercent, MinValue: minValue}),
		Recency:   recency.New(store, recency.WithLocation(cfg.Location)),
		Selector:  selector.New(rng),
		Notifier:  n,
		Observers: observers,
	}

	gate, err := schedule.NewGate(schedule.GateConfig{
		From:           cfg.ActiveFrom,
		Until:          cfg.ActiveUntil,
		SkipSunday:     cfg.SkipSunday,
		HolidayCountry: cfg.HolidayCountry,
		Holidays:       cfg.Holidays,
		Location:       cfg.Location,
	}, rng)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init publishing window: %w", err)
	}
	deps.Gate = gate

	cleaner, err := ai.NewTitleCleaner(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Warn("Gemini unavailable, titles will not be rewritten", "error", err)
	} else if cleaner != nil {
		deps.Enricher = cleaner
	}

	ticker, err := schedule.NewTicker(cfg.CycleSchedule, cfg.Location, rng)
	if err != nil {
		return nil, cleanup, fmt.Errorf("invalid CYCLE_SCHEDULE: %w", err)
	}
	deps.Ticker = ticker

	p, err := processor.New(deps, processor.Options{
		LookbackDays:        cfg.MaxDaysToCheck,
		ConnectivityBackoff: cfg.ConnectivityBackoff,
		Marketplace:         cfg.PAAPIMarketplace,
		PartnerTag:          cfg.PAAPIPartnerTag,
	})
	if err != nil {
		return nil, cleanup, err
	}
	return p, cleanup, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.HealthHandler)
	r.Post("/process-offers", s.ProcessOffersHandler)
	return r
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"state":  s.processor.State().String(),
	})
}

// ProcessOffersHandler asks the run loop for an early cycle. It never runs
// a cycle itself, so two cycles cannot overlap.
func (s *Server) ProcessOffersHandler(w http.ResponseWriter, r *http.Request) {
	s.processor.Wake()
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Offer processing requested.")
}
