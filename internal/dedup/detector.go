// Package dedup decides whether an incoming posting is new or a duplicate of
// a record already known, possibly from a different source site.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velin/jobradar/internal/similarity"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

// DefaultCandidateWindow is the trailing window of posting age considered
// during fuzzy candidate lookup.
const DefaultCandidateWindow = 30 * 24 * time.Hour

// Scoring weights and bonuses for the overall duplicate score.
const (
	titleWeight    = 0.4
	companyWeight  = 0.4
	locationWeight = 0.2
	techBonusScale = 0.2

	dateBonusSameDay = 0.1
	dateBonusWeek    = 0.05
)

// Decision thresholds on the overall score.
const (
	// TierExactScore marks the safety-net tier: scores this high mean the
	// postings are almost certainly the same opening even without a key match.
	TierExactScore = 0.95
	// AutoMergeScore is the floor for automatic merging.
	AutoMergeScore = 0.80
	// CandidateScore is the floor for surfacing a candidate without merging.
	CandidateScore = 0.70
)

// PostingStore is the narrow persistence surface the detector needs.
type PostingStore interface {
	GetPostingBySourceURL(ctx context.Context, sourceURL string) (*store.Posting, error)
	GetPostingByExternalID(ctx context.Context, sourceSite, externalID string) (*store.Posting, error)
	FindCandidatePostings(ctx context.Context, companyName, titleWord string, since time.Time) ([]store.Posting, error)
	MutatePosting(ctx context.Context, id uuid.UUID, mutate func(*store.Posting) error) (*store.Posting, error)
}

// ScoredCandidate is an existing posting scored against an incoming one.
type ScoredCandidate struct {
	Posting     store.Posting
	TitleSim    float64
	CompanySim  float64
	LocationSim float64
	TechBonus   float64
	DateBonus   float64
	Overall     float64
}

// AutoMergeable reports whether the candidate clears the auto-merge floor.
func (c ScoredCandidate) AutoMergeable() bool {
	return c.Overall >= AutoMergeScore
}

// Detector finds duplicates for incoming postings and merges them.
type Detector struct {
	store  PostingStore
	window time.Duration
	logger *slog.Logger
}

// NewDetector creates a detector over the given posting store. A zero window
// falls back to DefaultCandidateWindow.
func NewDetector(postings PostingStore, window time.Duration, logger *slog.Logger) *Detector {
	if window <= 0 {
		window = DefaultCandidateWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: postings, window: window, logger: logger}
}

// FindExactMatch looks up an existing posting by source URL first, then by
// the (source site, external id) pair. Either match is authoritative; no
// similarity scoring is performed.
func (d *Detector) FindExactMatch(ctx context.Context, p types.RawPosting) (*store.Posting, error) {
	existing, err := d.store.GetPostingBySourceURL(ctx, p.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("exact match by url: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if p.ExternalID == "" {
		return nil, nil
	}
	existing, err = d.store.GetPostingByExternalID(ctx, p.SourceSite, p.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("exact match by external id: %w", err)
	}
	return existing, nil
}

// FindCandidates returns fuzzy duplicate candidates for the incoming posting,
// scored and sorted by overall similarity descending. Candidates below the
// surface threshold are discarded.
func (d *Detector) FindCandidates(ctx context.Context, p types.RawPosting) ([]ScoredCandidate, error) {
	since := time.Now().Add(-d.window)
	postings, err := d.store.FindCandidatePostings(ctx, p.CompanyName, store.FirstTitleWord(p.Title), since)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(postings))
	candidates := make([]ScoredCandidate, 0, len(postings))
	for i := range postings {
		existing := &postings[i]
		if seen[existing.ID] {
			continue
		}
		seen[existing.ID] = true

		scored := Score(p, existing)
		if scored.Overall < CandidateScore {
			continue
		}
		candidates = append(candidates, scored)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Overall > candidates[j].Overall
	})
	return candidates, nil
}

// Score computes the weighted similarity between an incoming posting and an
// existing record. Pure; exported so scoring behavior is testable in isolation.
func Score(p types.RawPosting, existing *store.Posting) ScoredCandidate {
	c := ScoredCandidate{
		Posting:     *existing,
		TitleSim:    similarity.Similarity(p.Title, existing.Title),
		CompanySim:  similarity.Similarity(p.CompanyName, existing.CompanyName),
		LocationSim: similarity.Similarity(p.Location, existing.Location),
		TechBonus:   similarity.Jaccard(p.Technologies, existing.Technologies) * techBonusScale,
		DateBonus:   dateBonus(p.PostedAt, existing.PostedAt),
	}

	overall := c.TitleSim*titleWeight + c.CompanySim*companyWeight + c.LocationSim*locationWeight +
		c.TechBonus + c.DateBonus
	c.Overall = clamp01(overall)
	return c
}

// dateBonus rewards postings published close together in time.
func dateBonus(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 24*time.Hour:
		return dateBonusSameDay
	case diff <= 7*24*time.Hour:
		return dateBonusWeek
	default:
		return 0
	}
}

// Merge folds the incoming posting into the target record as one persistence
// transaction. Merging is idempotent: re-applying the same posting leaves the
// record unchanged apart from provenance timestamps.
func (d *Detector) Merge(ctx context.Context, targetID uuid.UUID, p types.RawPosting) (*store.Posting, error) {
	now := time.Now().UTC()
	merged, err := d.store.MutatePosting(ctx, targetID, func(target *store.Posting) error {
		ApplyMerge(target, p, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge into %s: %w", targetID, err)
	}

	d.logger.Debug("merged posting",
		"target_id", targetID,
		"source_site", p.SourceSite,
		"source_url", p.SourceURL,
	)
	return merged, nil
}

// ApplyMerge mutates target in memory according to the merge rules: provenance
// maps always update, everything else fills only when the target side is
// empty. A non-empty field is never overwritten with different data.
func ApplyMerge(target *store.Posting, p types.RawPosting, now time.Time) {
	if target.ExternalIDs == nil {
		target.ExternalIDs = map[string]string{}
	}
	if target.ScrapedSites == nil {
		target.ScrapedSites = map[string]store.SourceRef{}
	}

	// Cross-source identity: record the external id only on first sighting
	// from this site, never replace an existing one.
	if p.ExternalID != "" {
		if _, ok := target.ExternalIDs[p.SourceSite]; !ok {
			target.ExternalIDs[p.SourceSite] = p.ExternalID
		}
	}
	target.ScrapedSites[p.SourceSite] = store.SourceRef{LastSeenAt: now, URL: p.SourceURL}

	if (target.Description == nil || *target.Description == "") && p.Description != "" {
		desc := p.Description
		target.Description = &desc
	}

	target.Technologies = unionTechnologies(target.Technologies, p.Technologies)

	if target.SalaryMin == nil && target.SalaryMax == nil && p.Salary != nil {
		if p.Salary.Min > 0 {
			min := p.Salary.Min
			target.SalaryMin = &min
		}
		if p.Salary.Max > 0 {
			max := p.Salary.Max
			target.SalaryMax = &max
		}
		if p.Salary.Currency != "" {
			currency := p.Salary.Currency
			target.Currency = &currency
		}
	}
}

// unionTechnologies merges two technology lists, comparing lower-cased and
// trimmed values so cross-source casing differences collapse into one entry.
// Existing entries keep their position and casing.
func unionTechnologies(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := existing
	for _, tech := range existing {
		seen[strings.ToLower(strings.TrimSpace(tech))] = true
	}
	for _, tech := range incoming {
		key := strings.ToLower(strings.TrimSpace(tech))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(tech))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
