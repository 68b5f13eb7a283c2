// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/velin/jobradar/internal/scoring"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScrapingResult outputs a human-readable summary of a scrape run.
func (p *Printer) PrintScrapingResult(result *types.ScrapingResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found:     %d\n", result.TotalFound))
	sb.WriteString(fmt.Sprintf("New:       %d\n", result.NewVacancies))
	sb.WriteString(fmt.Sprintf("Updated:   %d\n", result.UpdatedVacancies))
	sb.WriteString(fmt.Sprintf("Companies: %d new\n", result.NewCompanies))
	sb.WriteString(fmt.Sprintf("Duration:  %dms", result.DurationMs))
	p.printBox("Scrape Result", sb.String())

	if len(result.Errors) > 0 {
		var eb strings.Builder
		shown := result.Errors
		if len(shown) > maxItemsToShow {
			shown = shown[:maxItemsToShow]
		}
		for i, e := range shown {
			if i > 0 {
				eb.WriteString("\n")
			}
			eb.WriteString("- " + e)
		}
		if len(result.Errors) > maxItemsToShow {
			eb.WriteString(fmt.Sprintf("\n... and %d more", len(result.Errors)-maxItemsToShow))
		}
		p.printBox(fmt.Sprintf("Errors (%d)", len(result.Errors)), eb.String())
	}
}

// PrintStats outputs a human-readable summary of the aggregate counts.
func (p *Printer) PrintStats(stats *types.Stats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Vacancies: %d total, %d active\n", stats.TotalVacancies, stats.ActiveVacancies))
	sb.WriteString(fmt.Sprintf("Companies: %d", stats.TotalCompanies))

	if len(stats.PerSiteCounts) > 0 {
		siteNames := make([]string, 0, len(stats.PerSiteCounts))
		for site := range stats.PerSiteCounts {
			siteNames = append(siteNames, site)
		}
		sort.Strings(siteNames)
		for _, site := range siteNames {
			sb.WriteString(fmt.Sprintf("\n  %-14s %d", site, stats.PerSiteCounts[site]))
		}
	}
	if stats.LastScrapedAt != nil {
		sb.WriteString("\nLast scrape: " + stats.LastScrapedAt.Format("2006-01-02 15:04"))
	}
	p.printBox("Aggregate Stats", sb.String())
}

// PrintCompanyScore outputs a saved company score with its category
// breakdown and advice lists.
func (p *Printer) PrintCompanyScore(companyName string, score *store.CompanyScore) {
	if score == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall:    %d/100\n", score.OverallScore))
	sb.WriteString(fmt.Sprintf("Confidence: %d/100\n", score.ConfidenceLevel))

	categories := make([]string, 0, len(score.CategoryScores))
	for category := range score.CategoryScores {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("\n  %-22s %.1f/10", category, score.CategoryScores[category]))
	}
	p.printBox("Score: "+companyName, sb.String())

	p.printList("Strengths", score.Strengths)
	p.printList("Concerns", score.Concerns)
	p.printList("Recommendations", score.Recommendations)
}

// PrintFactorBreakdown outputs every factor score grouped by category.
func (p *Printer) PrintFactorBreakdown(score *store.CompanyScore) {
	if score == nil || len(score.FactorScores) == 0 {
		return
	}

	factors := make([]string, 0, len(score.FactorScores))
	for factor := range score.FactorScores {
		factors = append(factors, factor)
	}
	sort.Strings(factors)

	var sb strings.Builder
	for i, factor := range factors {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%-28s %.1f", factor, score.FactorScores[factor]))
	}
	p.printBox("Factors", sb.String())
}

// PrintScore outputs a freshly computed engine score.
func (p *Printer) PrintScore(companyName string, result scoring.Score) {
	record := &store.CompanyScore{
		OverallScore:    result.Overall,
		ConfidenceLevel: result.Confidence,
		CategoryScores:  map[string]float64{},
		Strengths:       result.Strengths,
		Concerns:        result.Concerns,
		Recommendations: result.Recommendations,
	}
	for category, value := range result.CategoryScores {
		record.CategoryScores[string(category)] = value
	}
	p.PrintCompanyScore(companyName, record)
}

func (p *Printer) printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + item)
	}
	p.printBox(title, sb.String())
}
