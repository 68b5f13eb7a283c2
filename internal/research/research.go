// Package research discovers company websites through Google Programmable
// Search. It is optional: without API credentials the pipeline simply skips
// website discovery.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Researcher looks up company websites via the Custom Search API.
type Researcher struct {
	svc    *customsearch.Service
	cx     string
	logger *slog.Logger
}

func NewResearcher(ctx context.Context, apiKey, cx string, logger *slog.Logger) (*Researcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine ID are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Researcher{svc: svc, cx: cx, logger: logger}, nil
}

// DiscoverCompanyWebsite finds the company's own website URL, skipping job
// boards and social profiles that tend to dominate search results.
func (r *Researcher) DiscoverCompanyWebsite(ctx context.Context, companyName string) (string, error) {
	query := fmt.Sprintf("%s official website", companyName)
	resp, err := r.svc.Cse.List().Context(ctx).Cx(r.cx).Q(query).Num(5).Do()
	if err != nil {
		return "", fmt.Errorf("search failed for %q: %w", companyName, err)
	}

	for _, item := range resp.Items {
		if IsAggregatorDomain(item.Link) {
			continue
		}
		r.logger.Debug("discovered company website",
			"company", companyName,
			"url", item.Link)
		return item.Link, nil
	}
	return "", fmt.Errorf("no usable search results for %q", companyName)
}

// FindCompanyPages returns candidate culture/career pages for analysis: the
// website itself plus site-restricted search hits. Failed queries are
// skipped, not fatal.
func (r *Researcher) FindCompanyPages(ctx context.Context, companyName, websiteURL string) ([]string, error) {
	var pages []string
	if websiteURL != "" {
		pages = append(pages, websiteURL)
	}

	domain := Domain(websiteURL)
	queries := []string{
		fmt.Sprintf("site:%s careers", domain),
		fmt.Sprintf("site:%s about culture values", domain),
		fmt.Sprintf("%s company values benefits", companyName),
	}
	for _, q := range queries {
		resp, err := r.svc.Cse.List().Context(ctx).Cx(r.cx).Q(q).Num(3).Do()
		if err != nil {
			r.logger.Debug("search query failed", "query", q, "error", err)
			continue
		}
		for _, item := range resp.Items {
			if !IsAggregatorDomain(item.Link) {
				pages = append(pages, item.Link)
			}
		}
	}

	unique := make([]string, 0, len(pages))
	seen := make(map[string]bool)
	for _, page := range pages {
		if !seen[page] {
			unique = append(unique, page)
			seen[page] = true
		}
	}
	return unique, nil
}

// aggregatorDomains are hosts that are never a company's own website.
var aggregatorDomains = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"glassdoor.com",
	"indeed.com",
	"dev.bg",
	"jobs.bg",
	"zaplata.bg",
	"wikipedia.org",
	"crunchbase.com",
	"youtube.com",
}

// IsAggregatorDomain reports whether the URL points at a job board, social
// network or other aggregator rather than a company site.
func IsAggregatorDomain(url string) bool {
	domain := Domain(url)
	for _, blocked := range aggregatorDomains {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	return false
}

// Domain extracts the bare host from a URL.
func Domain(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "www.")
	if idx := strings.IndexAny(url, "/?#"); idx >= 0 {
		url = url[:idx]
	}
	return strings.ToLower(url)
}
