package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindOrCreateCompany finds an existing company by normalized name or creates
// a new one. The second return value reports whether a record was created.
func (s *Store) FindOrCreateCompany(ctx context.Context, name string) (*Company, bool, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, false, fmt.Errorf("company name cannot be empty")
	}

	company, err := s.GetCompanyByNormalizedName(ctx, normalized)
	if err != nil {
		return nil, false, err
	}
	if company != nil {
		return company, false, nil
	}

	var c Company
	err = s.pool.QueryRow(ctx,
		`INSERT INTO companies (name, name_normalized)
		 VALUES ($1, $2)
		 ON CONFLICT (name_normalized) DO UPDATE SET updated_at = NOW()
		 RETURNING id, name, name_normalized, website, industry, created_at, updated_at`,
		name, normalized,
	).Scan(&c.ID, &c.Name, &c.NameNormalized, &c.Website, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create company: %w", err)
	}

	return &c, true, nil
}

// GetCompanyByNormalizedName retrieves a company by its normalized name.
func (s *Store) GetCompanyByNormalizedName(ctx context.Context, normalized string) (*Company, error) {
	var c Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, name_normalized, website, industry, created_at, updated_at
		 FROM companies WHERE name_normalized = $1`,
		normalized,
	).Scan(&c.ID, &c.Name, &c.NameNormalized, &c.Website, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// GetCompanyByID retrieves a company by its UUID.
func (s *Store) GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	var c Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, name_normalized, website, industry, created_at, updated_at
		 FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.NameNormalized, &c.Website, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// UpdateCompanyWebsite sets the company's website if discovered later.
func (s *Store) UpdateCompanyWebsite(ctx context.Context, id uuid.UUID, website string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE companies SET website = $1, updated_at = NOW() WHERE id = $2`,
		website, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update company website: %w", err)
	}
	return nil
}

// UpdateCompanyIndustry records the industry reported by company analysis.
func (s *Store) UpdateCompanyIndustry(ctx context.Context, id uuid.UUID, industry string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE companies SET industry = $1, updated_at = NOW() WHERE id = $2`,
		industry, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update company industry: %w", err)
	}
	return nil
}
