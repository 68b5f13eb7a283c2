// Package config provides configuration loading and validation for the
// aggregator. Values come from an optional JSON file overlaid with
// environment variables; environment wins.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds every operational knob. All fields are optional in the JSON
// file; required fields are enforced by Validate after the environment
// overlay.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty" validate:"required"`
	RedisURL    string `json:"redis_url,omitempty"`

	// AI and search credentials. Empty GeminiAPIKey disables enrichment and
	// company analysis; empty search credentials disable website discovery.
	GeminiAPIKey   string `json:"gemini_api_key,omitempty"`
	SearchAPIKey   string `json:"search_api_key,omitempty"`
	SearchEngineID string `json:"search_engine_id,omitempty"`

	// Scheduling
	ScrapeSpec     string `json:"scrape_spec,omitempty"`
	SweepSpec      string `json:"sweep_spec,omitempty"`
	StaleAfterDays int    `json:"stale_after_days,omitempty" validate:"min=0"`

	// Pipeline tuning
	SubConcurrency      int  `json:"sub_concurrency,omitempty" validate:"min=0,max=16"`
	InterRequestDelayMs int  `json:"inter_request_delay_ms,omitempty" validate:"min=0"`
	QueueCapacity       int  `json:"queue_capacity,omitempty" validate:"min=0"`
	AnalysisEnabled     bool `json:"analysis_enabled,omitempty"`
	CompanySiteTTLHours int  `json:"company_site_ttl_hours,omitempty" validate:"min=0"`
	JobBoardTTLHours    int  `json:"job_board_ttl_hours,omitempty" validate:"min=0"`
	StatsTTLMinutes     int  `json:"stats_ttl_minutes,omitempty" validate:"min=0"`

	// Scraping
	DevBGCategory string `json:"devbg_category,omitempty"`
	JobsBGKeyword string `json:"jobsbg_keyword,omitempty"`

	// Logging
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ScrapeSpec:          "@every 6h",
		SweepSpec:           "@daily",
		StaleAfterDays:      14,
		SubConcurrency:      2,
		InterRequestDelayMs: 2000,
		QueueCapacity:       128,
		AnalysisEnabled:     true,
		CompanySiteTTLHours: 7 * 24,
		JobBoardTTLHours:    3 * 24,
		StatsTTLMinutes:     5,
		DevBGCategory:       "backend-development",
		LogLevel:            "info",
	}
}

// Load builds the effective configuration: defaults, then the JSON file at
// path (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = merge(cfg, *fileCfg)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// merge overlays non-zero fields of over onto base. Booleans cannot
// distinguish unset from false, so AnalysisEnabled is handled by env and
// defaults only.
func merge(base, over Config) Config {
	result := base
	overlayString(&result.DatabaseURL, over.DatabaseURL)
	overlayString(&result.RedisURL, over.RedisURL)
	overlayString(&result.GeminiAPIKey, over.GeminiAPIKey)
	overlayString(&result.SearchAPIKey, over.SearchAPIKey)
	overlayString(&result.SearchEngineID, over.SearchEngineID)
	overlayString(&result.ScrapeSpec, over.ScrapeSpec)
	overlayString(&result.SweepSpec, over.SweepSpec)
	overlayString(&result.DevBGCategory, over.DevBGCategory)
	overlayString(&result.JobsBGKeyword, over.JobsBGKeyword)
	overlayString(&result.LogLevel, over.LogLevel)
	overlayInt(&result.StaleAfterDays, over.StaleAfterDays)
	overlayInt(&result.SubConcurrency, over.SubConcurrency)
	overlayInt(&result.InterRequestDelayMs, over.InterRequestDelayMs)
	overlayInt(&result.QueueCapacity, over.QueueCapacity)
	overlayInt(&result.CompanySiteTTLHours, over.CompanySiteTTLHours)
	overlayInt(&result.JobBoardTTLHours, over.JobBoardTTLHours)
	overlayInt(&result.StatsTTLMinutes, over.StatsTTLMinutes)
	return result
}

func overlayString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func overlayInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	overlayString(&cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	overlayString(&cfg.RedisURL, os.Getenv("REDIS_URL"))
	overlayString(&cfg.GeminiAPIKey, os.Getenv("GEMINI_API_KEY"))
	overlayString(&cfg.SearchAPIKey, os.Getenv("GOOGLE_SEARCH_API_KEY"))
	overlayString(&cfg.SearchEngineID, os.Getenv("GOOGLE_SEARCH_ENGINE_ID"))
	overlayString(&cfg.ScrapeSpec, os.Getenv("SCRAPE_SPEC"))
	overlayString(&cfg.LogLevel, os.Getenv("LOG_LEVEL"))
	if v := os.Getenv("ANALYSIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.AnalysisEnabled = enabled
		}
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return fmt.Errorf("config error: field %s failed %q validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.SearchAPIKey != "" && c.SearchEngineID == "" {
		return fmt.Errorf("config error: search_engine_id is required when search_api_key is set")
	}
	return nil
}
