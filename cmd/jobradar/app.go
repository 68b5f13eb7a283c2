package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/velin/jobradar/internal/ai"
	"github.com/velin/jobradar/internal/config"
	"github.com/velin/jobradar/internal/dedup"
	"github.com/velin/jobradar/internal/fetch"
	"github.com/velin/jobradar/internal/freshness"
	"github.com/velin/jobradar/internal/pipeline"
	"github.com/velin/jobradar/internal/research"
	"github.com/velin/jobradar/internal/scoring"
	"github.com/velin/jobradar/internal/sites"
	"github.com/velin/jobradar/internal/stats"
	"github.com/velin/jobradar/internal/store"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	service *pipeline.Service

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// buildApp wires the full pipeline from configuration. Optional pieces (AI,
// search, Redis) are skipped when their credentials are absent.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	a := &app{cfg: cfg, logger: logger}

	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	var extractor pipeline.AIExtractor
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewGeminiClient(ctx, nil, cfg.GeminiAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		extractor = ai.NewExtractor(client, logger)
	} else {
		logger.Warn("GEMINI_API_KEY is not set, AI enrichment and company analysis are disabled")
	}

	var finder pipeline.WebsiteFinder
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		researcher, err := research.NewResearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		finder = researcher
	}

	var statsSource pipeline.StatsSource = st
	if cfg.RedisURL != "" {
		rdb, err := stats.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, serving stats without cache", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			statsSource = stats.NewCache(rdb, st,
				time.Duration(cfg.StatsTTLMinutes)*time.Minute, logger)
		}
	}

	gate := freshness.NewGate(st, freshness.TTLPolicy{
		Default: time.Duration(cfg.JobBoardTTLHours) * time.Hour,
		PerSite: map[string]time.Duration{
			store.SiteCompanySite: time.Duration(cfg.CompanySiteTTLHours) * time.Hour,
		},
	}, logger)

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.SubConcurrency = cfg.SubConcurrency
	pipeCfg.InterRequestDelay = time.Duration(cfg.InterRequestDelayMs) * time.Millisecond
	pipeCfg.AnalysisEnabled = cfg.AnalysisEnabled
	pipeCfg.Orchestrator.QueueCapacity = cfg.QueueCapacity

	svc, err := pipeline.New(pipeline.Deps{
		Store:     st,
		Detector:  dedup.NewDetector(st, 0, logger),
		Gate:      gate,
		Scorer:    scoring.NewEngine(logger),
		Extractor: extractor,
		Fetcher:   fetch.NewClient(nil),
		Renderer: func(ctx context.Context, url string) (string, error) {
			return fetch.BrowserSimple(ctx, url, logger)
		},
		Registry:  sites.NewRegistry(sites.NewDevBG(cfg.DevBGCategory), sites.NewJobsBG(cfg.JobsBGKeyword)),
		Finder:    finder,
		Stats:     statsSource,
		Logger:    logger,
	}, pipeCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = svc
	return a, nil
}
