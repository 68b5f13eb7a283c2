package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetSourceCache retrieves the cache entry for a (company, source site) pair.
func (s *Store) GetSourceCache(ctx context.Context, companyID uuid.UUID, sourceSite string) (*CompanySourceCache, error) {
	var c CompanySourceCache
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, source_site, source_url, last_scraped_at, is_valid, invalid_reason, created_at, updated_at
		 FROM company_source_cache
		 WHERE company_id = $1 AND source_site = $2`,
		companyID, sourceSite,
	).Scan(&c.ID, &c.CompanyID, &c.SourceSite, &c.SourceURL, &c.LastScrapedAt,
		&c.IsValid, &c.InvalidReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get source cache: %w", err)
	}
	return &c, nil
}

// RecordSourceSuccess upserts a successful fetch for the (company, site) pair.
// Idempotent: repeated calls only move last_scraped_at forward.
func (s *Store) RecordSourceSuccess(ctx context.Context, companyID uuid.UUID, sourceSite, sourceURL string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_source_cache (company_id, source_site, source_url, last_scraped_at, is_valid)
		 VALUES ($1, $2, $3, NOW(), true)
		 ON CONFLICT (company_id, source_site) DO UPDATE SET
		     source_url = $3,
		     last_scraped_at = NOW(),
		     is_valid = true,
		     invalid_reason = NULL,
		     updated_at = NOW()`,
		companyID, sourceSite, sourceURL,
	)
	if err != nil {
		return fmt.Errorf("failed to record source success: %w", err)
	}
	return nil
}

// MarkSourceInvalid upserts a failed validation for the (company, site) pair.
// The entry stays invalid until a later fetch succeeds.
func (s *Store) MarkSourceInvalid(ctx context.Context, companyID uuid.UUID, sourceSite, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_source_cache (company_id, source_site, source_url, is_valid, invalid_reason)
		 VALUES ($1, $2, '', false, $3)
		 ON CONFLICT (company_id, source_site) DO UPDATE SET
		     is_valid = false,
		     invalid_reason = $3,
		     updated_at = NOW()`,
		companyID, sourceSite, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to mark source invalid: %w", err)
	}
	return nil
}
