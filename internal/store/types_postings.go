package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostingStatus values. A posting is never deleted; it is marked duplicate
// when merged away or inactive when it disappears from all sources.
const (
	StatusActive    = "active"
	StatusDuplicate = "duplicate"
	StatusInactive  = "inactive"
)

// Source site constants for the boards we currently aggregate.
const (
	SiteDevBG       = "dev.bg"
	SiteJobsBG      = "jobs.bg"
	SiteLinkedIn    = "linkedin"
	SiteCompanySite = "company-site"
	SiteUnknown     = "unknown"
)

// SourceRef records when and where a source site last contributed to a posting.
type SourceRef struct {
	LastSeenAt time.Time `json:"last_seen_at"`
	URL        string    `json:"url"`
}

// Extraction holds the AI-enriched vacancy fields. Stored as one JSONB
// column since the fields only ever change together.
type Extraction struct {
	Seniority        string    `json:"seniority,omitempty"`
	EmploymentType   string    `json:"employment_type,omitempty"`
	RemotePolicy     string    `json:"remote_policy,omitempty"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	Requirements     []string  `json:"requirements,omitempty"`
	Benefits         []string  `json:"benefits,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// Posting is a canonical job-vacancy record, possibly backed by multiple
// source sites. ExternalIDs and ScrapedSites grow monotonically: every site
// that has ever matched into this record stays recorded.
type Posting struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	Title        string     `json:"title"`
	CompanyName  string     `json:"company_name"`
	Location     string     `json:"location"`
	Technologies []string   `json:"technologies,omitempty"`
	SalaryMin    *int       `json:"salary_min,omitempty"`
	SalaryMax    *int       `json:"salary_max,omitempty"`
	Currency     *string    `json:"salary_currency,omitempty"`
	PostedAt     time.Time  `json:"posted_at"`
	Description  *string    `json:"description,omitempty"`

	// SourceSite/SourceURL identify the first sighting; cross-source identity
	// lives in the maps below.
	SourceSite   string               `json:"source_site"`
	SourceURL    string               `json:"source_url"`
	ExternalIDs  map[string]string    `json:"external_ids"`
	ScrapedSites map[string]SourceRef `json:"scraped_sites"`

	Status      string  `json:"status"`
	ContentHash *string `json:"content_hash,omitempty"`

	// Extraction is nil until an AI enrichment job has run.
	Extraction *Extraction `json:"extraction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashContent generates a SHA-256 hex digest of detail-page text. Extraction
// jobs carry it so downstream AI calls can be cached per content version.
func HashContent(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// NormalizeName normalizes a company name for case-insensitive lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DetectSourceSite maps a URL to a known source site constant.
func DetectSourceSite(url string) string {
	urlLower := strings.ToLower(url)
	switch {
	case strings.Contains(urlLower, "dev.bg"):
		return SiteDevBG
	case strings.Contains(urlLower, "jobs.bg"):
		return SiteJobsBG
	case strings.Contains(urlLower, "linkedin.com"):
		return SiteLinkedIn
	default:
		return SiteUnknown
	}
}

// FirstTitleWord returns the first word of a title with length >= 3, used as
// a recall-oriented prefilter for candidate lookup. Returns "" when no word
// qualifies.
func FirstTitleWord(title string) string {
	for _, word := range strings.Fields(title) {
		if len([]rune(word)) >= 3 {
			return word
		}
	}
	return ""
}
