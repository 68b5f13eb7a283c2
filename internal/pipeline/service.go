// Package pipeline wires the scraping, deduplication, enrichment and scoring
// stages into the job orchestrator and exposes the aggregate operations
// callers use: RunScrape and GetStats.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velin/jobradar/internal/dedup"
	"github.com/velin/jobradar/internal/fetch"
	"github.com/velin/jobradar/internal/freshness"
	"github.com/velin/jobradar/internal/orchestrator"
	"github.com/velin/jobradar/internal/scoring"
	"github.com/velin/jobradar/internal/sites"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

// Store is the persistence surface the pipeline needs. *store.Store
// implements it; tests use in-memory fakes.
type Store interface {
	dedup.PostingStore
	FindOrCreateCompany(ctx context.Context, name string) (*store.Company, bool, error)
	CreatePosting(ctx context.Context, posting *store.Posting) error
	UpdatePostingStatus(ctx context.Context, id uuid.UUID, status string) error
	SaveCompanyScore(ctx context.Context, score *store.CompanyScore) error
	UpdateCompanyWebsite(ctx context.Context, id uuid.UUID, website string) error
	UpdateCompanyIndustry(ctx context.Context, id uuid.UUID, industry string) error
	GetPostingByID(ctx context.Context, id uuid.UUID) (*store.Posting, error)
	GetStats(ctx context.Context) (*types.Stats, error)
	Ping(ctx context.Context) error
}

// PageFetcher retrieves a page over plain HTTP.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Renderer re-renders a page in a headless browser and returns the rendered
// HTML. It runs only when the plain HTTP response extracted too little text
// to be the real page. Nil disables the fallback, which keeps Chrome out of
// tests.
type Renderer func(ctx context.Context, url string) (string, error)

// AIExtractor is the LLM collaborator. IsConfigured false is a supported
// mode: enrichment and analysis jobs short-circuit.
type AIExtractor interface {
	IsConfigured() bool
	ExtractVacancy(ctx context.Context, content string) (*types.ExtractionResult, error)
	AnalyzeCompanyProfile(ctx context.Context, content, url string) (*types.CompanyAttributes, error)
}

// WebsiteFinder discovers a company's own website. Optional.
type WebsiteFinder interface {
	DiscoverCompanyWebsite(ctx context.Context, companyName string) (string, error)
}

// StatsSource serves aggregate stats; either the store directly or a cache
// in front of it.
type StatsSource interface {
	GetStats(ctx context.Context) (*types.Stats, error)
}

// Config tunes the pipeline's batch behavior.
type Config struct {
	// SubConcurrency bounds the fan-out inside one batch job.
	SubConcurrency int
	// InterRequestDelay spaces out site scrapes inside a batch.
	InterRequestDelay time.Duration
	// AnalysisEnabled gates company analysis and scoring.
	AnalysisEnabled bool
	// Orchestrator is passed through to the job queue.
	Orchestrator orchestrator.Config
}

func DefaultConfig() Config {
	return Config{
		SubConcurrency:    2,
		InterRequestDelay: 2 * time.Second,
		AnalysisEnabled:   true,
		Orchestrator:      orchestrator.DefaultConfig(),
	}
}

// ScrapeOptions selects what RunScrape covers.
type ScrapeOptions struct {
	// Sites to scrape; empty means every registered site.
	Sites []string
	// Limit caps postings per site; 0 means no cap.
	Limit int
}

// Service is the aggregation pipeline.
type Service struct {
	store     Store
	detector  *dedup.Detector
	gate      *freshness.Gate
	scorer    *scoring.Engine
	extractor AIExtractor
	fetcher   PageFetcher
	renderer  Renderer
	registry  *sites.Registry
	finder    WebsiteFinder
	stats     StatsSource
	orch      *orchestrator.Orchestrator
	config    Config
	logger    *slog.Logger

	mu      sync.Mutex
	results map[uuid.UUID]*types.ScrapingResult
}

// Deps carries the collaborators for New. Finder, Renderer and Stats may be
// nil; stats falls back to the store.
type Deps struct {
	Store     Store
	Detector  *dedup.Detector
	Gate      *freshness.Gate
	Scorer    *scoring.Engine
	Extractor AIExtractor
	Fetcher   PageFetcher
	Renderer  Renderer
	Registry  *sites.Registry
	Finder    WebsiteFinder
	Stats     StatsSource
	Logger    *slog.Logger
}

func New(deps Deps, config Config) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Detector == nil:
		return nil, fmt.Errorf("duplicate detector is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("freshness gate is required")
	case deps.Scorer == nil:
		return nil, fmt.Errorf("scoring engine is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("page fetcher is required")
	case deps.Registry == nil:
		return nil, fmt.Errorf("site registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Stats == nil {
		deps.Stats = deps.Store
	}
	if config.SubConcurrency <= 0 {
		config.SubConcurrency = DefaultConfig().SubConcurrency
	}

	s := &Service{
		store:     deps.Store,
		detector:  deps.Detector,
		gate:      deps.Gate,
		scorer:    deps.Scorer,
		extractor: deps.Extractor,
		fetcher:   deps.Fetcher,
		renderer:  deps.Renderer,
		registry:  deps.Registry,
		finder:    deps.Finder,
		stats:     deps.Stats,
		config:    config,
		logger:    deps.Logger,
		results:   make(map[uuid.UUID]*types.ScrapingResult),
	}
	s.orch = orchestrator.New(map[orchestrator.JobType]orchestrator.Executor{
		orchestrator.JobScrape:      orchestrator.ExecutorFunc(s.executeScrape),
		orchestrator.JobExtraction:  orchestrator.ExecutorFunc(s.executeExtraction),
		orchestrator.JobAnalysis:    orchestrator.ExecutorFunc(s.executeAnalysis),
		orchestrator.JobBatch:       orchestrator.ExecutorFunc(s.executeBatch),
		orchestrator.JobHealthCheck: orchestrator.ExecutorFunc(s.executeHealthCheck),
	}, config.Orchestrator, deps.Logger)
	return s, nil
}

// Start launches the orchestrator workers.
func (s *Service) Start() { s.orch.Start() }

// Stop drains the orchestrator.
func (s *Service) Stop() { s.orch.Stop() }

// Orchestrator exposes the queue for schedulers and status queries.
func (s *Service) Orchestrator() *orchestrator.Orchestrator { return s.orch }

// RunScrape scrapes the requested sites through a batch job and aggregates
// the outcome. Partial failures never make it fail: per-site and per-posting
// errors are collected into the result's error list.
func (s *Service) RunScrape(ctx context.Context, opts ScrapeOptions) (*types.ScrapingResult, error) {
	start := time.Now()
	siteList := opts.Sites
	if len(siteList) == 0 {
		siteList = s.registry.Sites()
	}

	job := orchestrator.NewJob(orchestrator.JobBatch, orchestrator.PriorityHigh)
	job.Batch = &orchestrator.BatchPayload{Sites: siteList, Limit: opts.Limit}
	handle, err := s.orch.Enqueue(job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue scrape batch: %w", err)
	}

	status, err := s.orch.Wait(ctx, handle)
	if err != nil {
		return nil, err
	}

	result := s.takeResult(job.ID)
	if result == nil {
		result = &types.ScrapingResult{}
	}
	if status.State == orchestrator.StateFailedPermanent && status.LastError != "" {
		result.Errors = append(result.Errors, status.LastError)
	}
	result.DurationMs = time.Since(start).Milliseconds()

	s.logger.Info("scrape run finished",
		"sites", siteList,
		"total_found", result.TotalFound,
		"new", result.NewVacancies,
		"updated", result.UpdatedVacancies,
		"errors", len(result.Errors),
		"duration_ms", result.DurationMs)
	return result, nil
}

// GetStats returns aggregate counts over the stored postings and companies.
func (s *Service) GetStats(ctx context.Context) (*types.Stats, error) {
	return s.stats.GetStats(ctx)
}

func (s *Service) storeResult(jobID uuid.UUID, result *types.ScrapingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = result
}

func (s *Service) takeResult(jobID uuid.UUID) *types.ScrapingResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.results[jobID]
	delete(s.results, jobID)
	return result
}
