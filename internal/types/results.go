package types

import "time"

// ScrapingResult is the aggregate outcome of one scrape run. Partial failures
// are reported through Errors; the run itself never fails because a single
// posting or site misbehaved.
type ScrapingResult struct {
	TotalFound       int      `json:"total_found"`
	NewVacancies     int      `json:"new_vacancies"`
	UpdatedVacancies int      `json:"updated_vacancies"`
	NewCompanies     int      `json:"new_companies"`
	Errors           []string `json:"errors,omitempty"`
	DurationMs       int64    `json:"duration_ms"`
}

// Stats is a point-in-time summary of the aggregated record set.
type Stats struct {
	TotalVacancies  int            `json:"total_vacancies"`
	ActiveVacancies int            `json:"active_vacancies"`
	TotalCompanies  int            `json:"total_companies"`
	PerSiteCounts   map[string]int `json:"per_site_counts,omitempty"`
	LastScrapedAt   *time.Time     `json:"last_scraped_at,omitempty"`
}
