package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/velin/jobradar/internal/schedule"
)

var daemonScrapeNow bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the aggregator continuously on a schedule",
	Long:  `Start the job orchestrator and the cron scheduler, scraping all sites on the configured interval and sweeping stale postings daily. Runs until interrupted.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonScrapeNow, "scrape-now", false, "Run one scrape immediately on startup")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.service.Start()
	defer a.service.Stop()

	scheduler := schedule.New(a.service, a.store, schedule.Config{
		ScrapeSpec:    a.cfg.ScrapeSpec,
		SweepSpec:     a.cfg.SweepSpec,
		StaleAfter:    time.Duration(a.cfg.StaleAfterDays) * 24 * time.Hour,
		ScrapeOnStart: daemonScrapeNow,
	}, a.logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	a.logger.Info("daemon running", "scrape_spec", a.cfg.ScrapeSpec)
	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
