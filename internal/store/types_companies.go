package store

import (
	"time"

	"github.com/google/uuid"
)

// Company is an employer entity, looked up by normalized name before any
// posting referencing it is created.
type Company struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	Website        *string   `json:"website,omitempty"`
	Industry       *string   `json:"industry,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CompanySourceCache tracks fetch history for one (company, source site)
// pairing. It owns the freshness decision for that pairing and is never
// deleted, only updated on each fetch attempt.
type CompanySourceCache struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	SourceSite    string     `json:"source_site"`
	SourceURL     string     `json:"source_url"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
	IsValid       bool       `json:"is_valid"`
	InvalidReason *string    `json:"invalid_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
