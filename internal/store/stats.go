package store

import (
	"context"
	"fmt"
	"time"

	"github.com/velin/jobradar/internal/types"
)

// GetStats computes the aggregate posting and company counts.
func (s *Store) GetStats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{PerSiteCounts: map[string]int{}}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = $1),
		        MAX(updated_at)
		 FROM postings`,
		StatusActive,
	).Scan(&stats.TotalVacancies, &stats.ActiveVacancies, &stats.LastScrapedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to count postings: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&stats.TotalCompanies)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}

	// Per-site counts come from the provenance maps, so a cross-source posting
	// counts once for every site that contributed to it.
	rows, err := s.pool.Query(ctx,
		`SELECT site.key, COUNT(*)
		 FROM postings, jsonb_each(scraped_sites) site
		 GROUP BY site.key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count per-site postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var site string
		var count int
		if err := rows.Scan(&site, &count); err != nil {
			return nil, fmt.Errorf("failed to scan site count: %w", err)
		}
		stats.PerSiteCounts[site] = count
	}
	return stats, rows.Err()
}

// MarkStalePostingsInactive flags active postings not seen by any source
// since the cutoff. Returns the number of postings updated.
func (s *Store) MarkStalePostingsInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET status = $1, updated_at = NOW()
		 WHERE status = $2
		   AND NOT EXISTS (
		       SELECT 1 FROM jsonb_each(scraped_sites) site
		       WHERE (site.value->>'last_seen_at')::timestamptz > $3
		   )`,
		StatusInactive, StatusActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale postings: %w", err)
	}
	return tag.RowsAffected(), nil
}
