// Package types holds the domain types shared across the ingestion pipeline.
package types

import "time"

// SalaryRange is an optional salary interval attached to a posting.
type SalaryRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency,omitempty"`
}

// RawPosting is a job vacancy as produced by a site parser, before
// deduplication and persistence.
type RawPosting struct {
	Title        string       `json:"title"`
	CompanyName  string       `json:"company_name"`
	Location     string       `json:"location"`
	Technologies []string     `json:"technologies,omitempty"`
	Salary       *SalaryRange `json:"salary,omitempty"`
	PostedAt     time.Time    `json:"posted_at"`
	SourceSite   string       `json:"source_site"`
	SourceURL    string       `json:"source_url"`
	ExternalID   string       `json:"external_id,omitempty"`
	Description  string       `json:"description,omitempty"`

	// DetailURL points at the full vacancy page when the listing only carried
	// a summary. Empty means there is nothing further to fetch.
	DetailURL string `json:"detail_url,omitempty"`

	// Company URLs discovered while parsing the detail page.
	CompanyProfileURL string `json:"company_profile_url,omitempty"`
	CompanyWebsite    string `json:"company_website,omitempty"`
}

// DetailPage is the parsed content of a single vacancy detail page.
type DetailPage struct {
	Description       string `json:"description"`
	CompanyProfileURL string `json:"company_profile_url,omitempty"`
	CompanyWebsite    string `json:"company_website,omitempty"`
}
