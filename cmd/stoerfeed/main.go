package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opentransit/stoerfeed/internal/agefilter"
	"github.com/opentransit/stoerfeed/internal/archive"
	"github.com/opentransit/stoerfeed/internal/config"
	"github.com/opentransit/stoerfeed/internal/feed"
	"github.com/opentransit/stoerfeed/internal/ingest"
	"github.com/opentransit/stoerfeed/internal/logging"
	"github.com/opentransit/stoerfeed/internal/metrics"
	"github.com/opentransit/stoerfeed/internal/pipeline"
	"github.com/opentransit/stoerfeed/internal/refdata"
	"github.com/opentransit/stoerfeed/internal/state"
)

func main() {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting stoerfeed")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stations, err := refdata.Load(cfg.StationsPath)
	if err != nil {
		logger.Warn("station directory unavailable, location checks disabled", "error", err)
		stations, _ = refdata.Load("")
	}

	// Stable provider order keeps the merge and dedupe passes, which
	// depend on processing order, deterministic between runs.
	names := make([]string, 0, len(cfg.Feeds))
	for name := range cfg.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	var providers []ingest.Provider
	for _, name := range names {
		if !cfg.ProviderEnabled(name) {
			logger.Info("provider disabled", "provider", name)
			continue
		}
		providers = append(providers, ingest.NewRSSProvider(name, cfg.Feeds[name], name, "", logger))
	}
	if len(providers) == 0 {
		logger.Warn("no providers configured, feed will be empty")
	}

	collector := ingest.NewCollector(providers, logger, ingest.CollectorConfig{
		FetchTimeout: cfg.FetchTimeout,
		Concurrency:  cfg.FetchConcurrency,
		RetryPolicy:  ingest.DefaultRetryPolicy(),
	})

	store := state.NewStore(cfg.StatePath, cfg.StateRetention, logger)

	var runArchive *archive.Store
	if cfg.ArchiveDSN != "" {
		runArchive, err = archive.Open(cfg.ArchiveDSN)
		if err != nil {
			logger.Warn("archive unavailable, continuing without it", "error", err)
		} else {
			defer runArchive.Close()
			if err := runArchive.EnsureSchema(ctx); err != nil {
				logger.Warn("archive schema check failed, continuing without archive", "error", err)
				runArchive.Close()
				runArchive = nil
			}
		}
	}

	collectorMetrics, err := metrics.NewPipelineCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Options{
		Collector: collector,
		Stations:  stations,
		Store:     store,
		Archive:   runArchive,
		Metrics:   collectorMetrics,
		Logger:    logger,
		AgeFilter: agefilter.Filter{
			MaxAge:         cfg.MaxItemAge,
			AbsoluteMaxAge: cfg.MaxItemAgeAbsolute,
		},
		FreshWindow: cfg.FreshWindow,
	})

	items := p.Run(ctx)

	feedCfg := feed.Config{
		Title:       cfg.FeedTitle,
		Link:        cfg.FeedLink,
		Description: cfg.FeedDescription,
	}
	if err := feed.WriteFile(cfg.FeedPath, feedCfg, items, time.Now()); err != nil {
		logger.Error("failed to write feed", "path", cfg.FeedPath, "error", err)
		os.Exit(1)
	}
	logger.Info("feed written", "path", cfg.FeedPath, "items", len(items))

	if cfg.MetricsTextfile != "" {
		if err := collectorMetrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("metrics export failed", "path", cfg.MetricsTextfile, "error", err)
		}
	}
}
