// Package main provides the entry point for the JobRadar aggregation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "jobradar",
	Short:   "Multi-source job posting aggregator",
	Long:    "JobRadar scrapes Bulgarian job boards, deduplicates postings across sources, enriches them with AI extraction, and scores employers on 24 workplace factors.",
	Version: version,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
