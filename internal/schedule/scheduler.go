// Package schedule wires up the cron jobs that keep the aggregate fresh: a
// periodic scrape across all registered sites and a stale-posting sweep.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/velin/jobradar/internal/pipeline"
	"github.com/velin/jobradar/internal/types"
)

// ScrapeRunner runs one scrape cycle. *pipeline.Service implements it.
type ScrapeRunner interface {
	RunScrape(ctx context.Context, opts pipeline.ScrapeOptions) (*types.ScrapingResult, error)
}

// StaleMarker retires postings that have not been seen on any source for a
// while.
type StaleMarker interface {
	MarkStalePostingsInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config tunes the scheduled cycles.
type Config struct {
	// ScrapeSpec is the cron spec for the scrape cycle, e.g. "@every 6h".
	ScrapeSpec string
	// SweepSpec is the cron spec for the stale-posting sweep.
	SweepSpec string
	// StaleAfter is how long a posting may go unseen before the sweep
	// marks it inactive.
	StaleAfter time.Duration
	// ScrapeOnStart runs one scrape immediately so a fresh deployment does
	// not wait for the first tick.
	ScrapeOnStart bool
}

func DefaultConfig() Config {
	return Config{
		ScrapeSpec:    "@every 6h",
		SweepSpec:     "@daily",
		StaleAfter:    14 * 24 * time.Hour,
		ScrapeOnStart: false,
	}
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron    *cron.Cron
	runner  ScrapeRunner
	sweeper StaleMarker
	config  Config
	logger  *slog.Logger
}

// New builds a scheduler. The sweeper may be nil, in which case the sweep
// job is not registered.
func New(runner ScrapeRunner, sweeper StaleMarker, config Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		sweeper: sweeper,
		config:  config,
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron loop. The context bounds
// every triggered cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.config.ScrapeSpec, func() {
		s.runScrapeCycle(ctx)
	}); err != nil {
		return fmt.Errorf("failed to register scrape job: %w", err)
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.config.SweepSpec, func() {
			s.runSweep(ctx)
		}); err != nil {
			return fmt.Errorf("failed to register sweep job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"scrape_spec", s.config.ScrapeSpec,
		"sweep_spec", s.config.SweepSpec)

	if s.config.ScrapeOnStart {
		go s.runScrapeCycle(ctx)
	}
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runScrapeCycle(ctx context.Context) {
	s.logger.Info("scheduled scrape cycle started")
	result, err := s.runner.RunScrape(ctx, pipeline.ScrapeOptions{})
	if err != nil {
		s.logger.Error("scheduled scrape cycle failed", "error", err)
		return
	}
	s.logger.Info("scheduled scrape cycle finished",
		"total_found", result.TotalFound,
		"new", result.NewVacancies,
		"updated", result.UpdatedVacancies,
		"errors", len(result.Errors))
}

func (s *Scheduler) runSweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.StaleAfter)
	marked, err := s.sweeper.MarkStalePostingsInactive(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale-posting sweep failed", "error", err)
		return
	}
	s.logger.Info("stale-posting sweep finished", "marked_inactive", marked)
}
