package scoring

import (
	"log/slog"
	"math"
	"strings"

	"github.com/velin/jobradar/internal/types"
)

// Score is the full scoring result for one company.
type Score struct {
	Overall         int                  `json:"overall"`
	CategoryScores  map[Category]float64 `json:"categoryScores"`
	FactorScores    map[Factor]float64   `json:"factorScores"`
	Strengths       []string             `json:"strengths"`
	Concerns        []string             `json:"concerns"`
	Recommendations []string             `json:"recommendations"`
	Confidence      int                  `json:"confidence"`
}

// Engine scores companies from their extracted attributes. The zero value is
// not usable; construct with NewEngine.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Score computes the weighted company score. It is pure: no clock, no I/O,
// and identical input yields identical output.
func (e *Engine) Score(attrs types.CompanyAttributes) Score {
	factors := computeFactors(attrs)

	categories := make(map[Category]float64, len(categoryOrder))
	for _, category := range categoryOrder {
		var sum float64
		for _, factor := range categoryFactors[category] {
			sum += factors[factor]
		}
		categories[category] = sum / float64(len(categoryFactors[category]))
	}

	weights := resolveWeights(attrs.Industry, attrs.Size)
	var weighted float64
	for _, category := range categoryOrder {
		weighted += categories[category] * weights[category]
	}
	overall := int(math.Round(weighted * 10))
	if overall > 100 {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}

	strengths, concerns, recommendations := buildAdvice(factors)
	confidence := computeConfidence(attrs)

	e.logger.Debug("scored company",
		"company", attrs.Name,
		"overall", overall,
		"confidence", confidence)

	return Score{
		Overall:         overall,
		CategoryScores:  categories,
		FactorScores:    factors,
		Strengths:       strengths,
		Concerns:        concerns,
		Recommendations: recommendations,
		Confidence:      confidence,
	}
}

// computeConfidence estimates how much to trust the score, 0-100. It blends
// data completeness with source reliability and adds small fixed increments
// when the list-valued attributes carry real content.
func computeConfidence(attrs types.CompanyAttributes) int {
	fields := []bool{
		strings.TrimSpace(attrs.Name) != "",
		strings.TrimSpace(attrs.Industry) != "",
		strings.TrimSpace(attrs.Size) != "",
		strings.TrimSpace(attrs.WorkModel) != "",
		attrs.FoundedYear > 0,
		attrs.EmployeeCount > 0,
		len(attrs.Technologies) > 0,
		len(attrs.Benefits) > 0,
		len(attrs.Values) > 0,
		strings.TrimSpace(attrs.Description) != "",
	}
	filled := 0
	for _, present := range fields {
		if present {
			filled++
		}
	}
	completeness := float64(filled) / float64(len(fields)) * 100

	var reliability float64
	switch attrs.SourceKind {
	case types.SourceKindCompanySite:
		reliability = 90
	case types.SourceKindJobBoard:
		reliability = 70
	default:
		reliability = 50
	}

	confidence := completeness*0.7 + reliability*0.3
	if len(attrs.Technologies) >= 3 {
		confidence += 3
	}
	if len(attrs.Benefits) >= 3 {
		confidence += 3
	}
	if len(attrs.Values) >= 3 {
		confidence += 3
	}

	result := int(math.Round(confidence))
	if result > 100 {
		result = 100
	}
	if result < 0 {
		result = 0
	}
	return result
}
