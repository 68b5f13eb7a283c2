// Package sites defines the per-source parsers that turn fetched HTML into
// raw postings. The registry is injected wherever parsers are needed so
// tests can substitute fakes per case.
package sites

import (
	"fmt"
	"sort"

	"github.com/velin/jobradar/internal/types"
)

// Parser knows how to read one source site's pages.
type Parser interface {
	// Site is the canonical site key, e.g. "dev.bg".
	Site() string
	// ListingURL returns the URL of the listing page to scrape.
	ListingURL() string
	// ParseListing extracts postings from a listing page.
	ParseListing(html string) ([]types.RawPosting, error)
	// ParseDetail extracts the full description and any company URLs from a
	// vacancy detail page.
	ParseDetail(html string) (*types.DetailPage, error)
}

// UnknownSiteError is returned when no parser is registered for a site.
type UnknownSiteError struct {
	Site string
}

func (e *UnknownSiteError) Error() string {
	return fmt.Sprintf("no parser registered for site %q", e.Site)
}

// Registry holds the known parsers. It is immutable after construction.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Site()] = p
	}
	return r
}

// Get returns the parser for a site.
func (r *Registry) Get(site string) (Parser, error) {
	p, ok := r.parsers[site]
	if !ok {
		return nil, &UnknownSiteError{Site: site}
	}
	return p, nil
}

// Sites lists the registered site keys in sorted order.
func (r *Registry) Sites() []string {
	sites := make([]string, 0, len(r.parsers))
	for site := range r.parsers {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}
