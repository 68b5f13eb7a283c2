// Package ai - extractor.go implements vacancy and company extraction on
// top of the LLM client.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/velin/jobradar/internal/schemas"
	"github.com/velin/jobradar/internal/types"
)

// vacancySchemaJSON type-checks the LLM's vacancy response before it is
// trusted. The fields are all optional; emptiness is judged separately.
const vacancySchemaJSON = `{
  "type": "object",
  "properties": {
    "seniority": {"type": "string"},
    "employment_type": {"type": "string"},
    "remote_policy": {"type": "string"},
    "technologies": {"type": "array", "items": {"type": "string"}},
    "responsibilities": {"type": "array", "items": {"type": "string"}},
    "requirements": {"type": "array", "items": {"type": "string"}},
    "benefits": {"type": "array", "items": {"type": "string"}},
    "salary_min": {"type": "integer"},
    "salary_max": {"type": "integer"}
  }
}`

const companySchemaJSON = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "industry": {"type": "string"},
    "size": {"type": "string"},
    "work_model": {"type": "string"},
    "founded_year": {"type": "integer"},
    "employee_count": {"type": "integer"},
    "technologies": {"type": "array", "items": {"type": "string"}},
    "benefits": {"type": "array", "items": {"type": "string"}},
    "values": {"type": "array", "items": {"type": "string"}},
    "description": {"type": "string"}
  }
}`

// Extractor turns page text into structured vacancy and company data. A nil
// client means the AI service is not configured; callers must check
// IsConfigured before extracting.
type Extractor struct {
	client Client
	logger *slog.Logger
}

func NewExtractor(client Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

// IsConfigured reports whether an LLM client is available.
func (e *Extractor) IsConfigured() bool {
	return e != nil && e.client != nil
}

// ExtractVacancy extracts structured vacancy data from job posting text.
// A nil result with nil error means the call succeeded but the model found
// nothing usable.
func (e *Extractor) ExtractVacancy(ctx context.Context, content string) (*types.ExtractionResult, error) {
	if !e.IsConfigured() {
		return nil, fmt.Errorf("AI extractor is not configured")
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	prompt := BuildExtractionPrompt(VacancySchema(), content)
	raw, err := e.client.GenerateJSON(ctx, prompt, TierFast)
	if err != nil {
		return nil, fmt.Errorf("failed to extract vacancy: %w", err)
	}

	if err := schemas.ValidateJSONString(vacancySchemaJSON, raw); err != nil {
		return nil, fmt.Errorf("vacancy extraction returned invalid JSON: %w", err)
	}

	var result types.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse vacancy extraction: %w", err)
	}
	if result.IsEmpty() {
		e.logger.Debug("vacancy extraction returned no usable data")
		return nil, nil
	}
	return &result, nil
}

// AnalyzeCompanyProfile extracts structured company attributes from a
// company page. A nil result with nil error means the model found nothing
// usable on the page.
func (e *Extractor) AnalyzeCompanyProfile(ctx context.Context, content, url string) (*types.CompanyAttributes, error) {
	if !e.IsConfigured() {
		return nil, fmt.Errorf("AI extractor is not configured")
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	prompt := BuildExtractionPrompt(CompanyProfileSchema(), content)
	raw, err := e.client.GenerateJSON(ctx, prompt, TierDeep)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze company profile %s: %w", url, err)
	}

	if err := schemas.ValidateJSONString(companySchemaJSON, raw); err != nil {
		return nil, fmt.Errorf("company analysis returned invalid JSON for %s: %w", url, err)
	}

	var attrs types.CompanyAttributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse company analysis for %s: %w", url, err)
	}
	if attrs.IsEmpty() {
		e.logger.Debug("company analysis returned no usable data", "url", url)
		return nil, nil
	}
	return &attrs, nil
}
