package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velin/jobradar/internal/observability"
	"github.com/velin/jobradar/internal/pipeline"
)

var (
	scrapeSites []string
	scrapeLimit int
	scrapeJSON  bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape cycle across the job boards",
	Long:  `Scrape the configured job boards, deduplicate the postings across sources, and queue AI enrichment for new vacancies. Per-site failures are reported in the summary without failing the run.`,
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeSites, "sites", nil, "Sites to scrape (default: all registered)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "Max postings per site (0 = no limit)")
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.service.Start()
	defer a.service.Stop()

	result, err := a.service.RunScrape(ctx, pipeline.ScrapeOptions{
		Sites: scrapeSites,
		Limit: scrapeLimit,
	})
	if err != nil {
		return fmt.Errorf("scrape run failed: %w", err)
	}

	if scrapeJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	observability.NewPrinter(os.Stdout).PrintScrapingResult(result)
	return nil
}
