package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const postingColumns = `id, company_id, title, company_name, location, technologies,
	salary_min, salary_max, salary_currency, posted_at, description,
	source_site, source_url, external_ids, scraped_sites, status, content_hash,
	extraction, created_at, updated_at`

// mergeTxRetries bounds how often a merge transaction is retried after a
// serialization failure before the error propagates.
const mergeTxRetries = 3

// scanPosting scans a posting row, decoding the JSONB identity maps.
func scanPosting(scan func(dest ...any) error) (*Posting, error) {
	var p Posting
	var externalIDs, scrapedSites, extraction []byte
	err := scan(&p.ID, &p.CompanyID, &p.Title, &p.CompanyName, &p.Location, &p.Technologies,
		&p.SalaryMin, &p.SalaryMax, &p.Currency, &p.PostedAt, &p.Description,
		&p.SourceSite, &p.SourceURL, &externalIDs, &scrapedSites, &p.Status, &p.ContentHash,
		&extraction, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.ExternalIDs = map[string]string{}
	if len(externalIDs) > 0 {
		if err := json.Unmarshal(externalIDs, &p.ExternalIDs); err != nil {
			return nil, fmt.Errorf("failed to decode external_ids: %w", err)
		}
	}
	p.ScrapedSites = map[string]SourceRef{}
	if len(scrapedSites) > 0 {
		if err := json.Unmarshal(scrapedSites, &p.ScrapedSites); err != nil {
			return nil, fmt.Errorf("failed to decode scraped_sites: %w", err)
		}
	}
	if len(extraction) > 0 {
		p.Extraction = &Extraction{}
		if err := json.Unmarshal(extraction, p.Extraction); err != nil {
			return nil, fmt.Errorf("failed to decode extraction: %w", err)
		}
	}
	return &p, nil
}

// GetPostingBySourceURL retrieves a posting whose provenance includes the URL,
// either as the original source URL or inside the scraped_sites map.
func (s *Store) GetPostingBySourceURL(ctx context.Context, sourceURL string) (*Posting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postingColumns+`
		 FROM postings
		 WHERE source_url = $1
		    OR EXISTS (
		        SELECT 1 FROM jsonb_each(scraped_sites) site
		        WHERE site.value->>'url' = $1
		    )
		 LIMIT 1`,
		sourceURL,
	)
	p, err := scanPosting(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting by source url: %w", err)
	}
	return p, nil
}

// GetPostingByExternalID retrieves a posting by a (source site, external id)
// pair recorded in its external_ids map.
func (s *Store) GetPostingByExternalID(ctx context.Context, sourceSite, externalID string) (*Posting, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+postingColumns+`
		 FROM postings
		 WHERE external_ids->>$1 = $2
		 LIMIT 1`,
		sourceSite, externalID,
	)
	p, err := scanPosting(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting by external id: %w", err)
	}
	return p, nil
}

// GetPostingByID retrieves a posting by its UUID.
func (s *Store) GetPostingByID(ctx context.Context, id uuid.UUID) (*Posting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = $1`, id)
	p, err := scanPosting(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return p, nil
}

// FindCandidatePostings returns active postings created after the cutoff that
// either share a company-name substring or contain the given title word.
// The result is de-duplicated by id in SQL.
func (s *Store) FindCandidatePostings(ctx context.Context, companyName, titleWord string, since time.Time) ([]Posting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (id) `+postingColumns+`
		 FROM postings
		 WHERE status = $1
		   AND created_at > $2
		   AND (
		       ($3 <> '' AND (company_name ILIKE '%' || $3 || '%' OR $3 ILIKE '%' || company_name || '%'))
		    OR ($4 <> '' AND title ILIKE '%' || $4 || '%')
		   )`,
		StatusActive, since, companyName, titleWord,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate postings: %w", err)
	}
	defer rows.Close()

	var postings []Posting
	for rows.Next() {
		p, err := scanPosting(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate posting: %w", err)
		}
		postings = append(postings, *p)
	}
	return postings, rows.Err()
}

// CreatePosting inserts a new posting and fills its generated fields.
func (s *Store) CreatePosting(ctx context.Context, p *Posting) error {
	if p.Status == "" {
		p.Status = StatusActive
	}
	externalIDs, err := json.Marshal(p.ExternalIDs)
	if err != nil {
		return fmt.Errorf("failed to encode external_ids: %w", err)
	}
	scrapedSites, err := json.Marshal(p.ScrapedSites)
	if err != nil {
		return fmt.Errorf("failed to encode scraped_sites: %w", err)
	}
	extraction, err := encodeExtraction(p.Extraction)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO postings (company_id, title, company_name, location, technologies,
		                       salary_min, salary_max, salary_currency, posted_at, description,
		                       source_site, source_url, external_ids, scraped_sites, status, content_hash,
		                       extraction)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, created_at, updated_at`,
		p.CompanyID, p.Title, p.CompanyName, p.Location, p.Technologies,
		p.SalaryMin, p.SalaryMax, p.Currency, p.PostedAt, p.Description,
		p.SourceSite, p.SourceURL, externalIDs, scrapedSites, p.Status, p.ContentHash,
		extraction,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create posting: %w", err)
	}
	return nil
}

// UpdatePostingStatus marks a posting active, duplicate, or inactive.
func (s *Store) UpdatePostingStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE postings SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update posting status: %w", err)
	}
	return nil
}

// MutatePosting loads a posting under a row lock, applies mutate, and writes
// the result back, all inside one transaction. Concurrent merges against the
// same record serialize on the lock; serialization failures are retried.
func (s *Store) MutatePosting(ctx context.Context, id uuid.UUID, mutate func(*Posting) error) (*Posting, error) {
	var p *Posting
	var err error
	for attempt := 0; attempt <= mergeTxRetries; attempt++ {
		p, err = s.mutatePostingOnce(ctx, id, mutate)
		if err == nil || !isSerializationFailure(err) {
			return p, err
		}
	}
	return nil, fmt.Errorf("merge conflict persisted after %d retries: %w", mergeTxRetries, err)
}

func (s *Store) mutatePostingOnce(ctx context.Context, id uuid.UUID, mutate func(*Posting) error) (*Posting, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPosting(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("posting not found: %s", id)
		}
		return nil, fmt.Errorf("failed to lock posting: %w", err)
	}

	if err := mutate(p); err != nil {
		return nil, err
	}

	externalIDs, err := json.Marshal(p.ExternalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode external_ids: %w", err)
	}
	scrapedSites, err := json.Marshal(p.ScrapedSites)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scraped_sites: %w", err)
	}
	extraction, err := encodeExtraction(p.Extraction)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE postings SET
		     company_id = $1, title = $2, company_name = $3, location = $4, technologies = $5,
		     salary_min = $6, salary_max = $7, salary_currency = $8, description = $9,
		     external_ids = $10, scraped_sites = $11, status = $12, content_hash = $13,
		     extraction = $14, updated_at = NOW()
		 WHERE id = $15`,
		p.CompanyID, p.Title, p.CompanyName, p.Location, p.Technologies,
		p.SalaryMin, p.SalaryMax, p.Currency, p.Description,
		externalIDs, scrapedSites, p.Status, p.ContentHash, extraction, p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update posting: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}
	return p, nil
}

// encodeExtraction marshals the extraction payload, keeping the column NULL
// for postings that were never enriched.
func encodeExtraction(e *Extraction) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction: %w", err)
	}
	return data, nil
}

// isSerializationFailure reports whether the error is a PostgreSQL
// serialization or deadlock failure worth retrying.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
