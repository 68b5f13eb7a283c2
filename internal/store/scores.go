package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CompanyScore is a historized quality score for a company. Every completed
// analysis inserts a new row; the latest row is the company's current score.
type CompanyScore struct {
	ID              uuid.UUID          `json:"id"`
	CompanyID       uuid.UUID          `json:"company_id"`
	OverallScore    int                `json:"overall_score"`
	CategoryScores  map[string]float64 `json:"category_scores"`
	FactorScores    map[string]float64 `json:"factor_scores"`
	Strengths       []string           `json:"strengths,omitempty"`
	Concerns        []string           `json:"concerns,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	ConfidenceLevel int                `json:"confidence_level"`
	CreatedAt       time.Time          `json:"created_at"`
}

// SaveCompanyScore inserts a new score row for the company.
func (s *Store) SaveCompanyScore(ctx context.Context, score *CompanyScore) error {
	categories, err := json.Marshal(score.CategoryScores)
	if err != nil {
		return fmt.Errorf("failed to encode category scores: %w", err)
	}
	factors, err := json.Marshal(score.FactorScores)
	if err != nil {
		return fmt.Errorf("failed to encode factor scores: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO company_scores (company_id, overall_score, category_scores, factor_scores,
		                             strengths, concerns, recommendations, confidence_level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		score.CompanyID, score.OverallScore, categories, factors,
		score.Strengths, score.Concerns, score.Recommendations, score.ConfidenceLevel,
	).Scan(&score.ID, &score.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save company score: %w", err)
	}
	return nil
}

// GetLatestCompanyScore retrieves the most recent score for a company.
func (s *Store) GetLatestCompanyScore(ctx context.Context, companyID uuid.UUID) (*CompanyScore, error) {
	var score CompanyScore
	var categories, factors []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, overall_score, category_scores, factor_scores,
		        strengths, concerns, recommendations, confidence_level, created_at
		 FROM company_scores
		 WHERE company_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		companyID,
	).Scan(&score.ID, &score.CompanyID, &score.OverallScore, &categories, &factors,
		&score.Strengths, &score.Concerns, &score.Recommendations, &score.ConfidenceLevel, &score.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company score: %w", err)
	}

	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &score.CategoryScores); err != nil {
			return nil, fmt.Errorf("failed to decode category scores: %w", err)
		}
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &score.FactorScores); err != nil {
			return nil, fmt.Errorf("failed to decode factor scores: %w", err)
		}
	}
	return &score, nil
}
