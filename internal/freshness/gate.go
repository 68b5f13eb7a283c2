// Package freshness decides whether slowly-changing company sources are stale
// enough to warrant re-fetching.
package freshness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velin/jobradar/internal/store"
)

// Reasons returned with every decision, useful for logging and tests.
const (
	ReasonNoPriorRecord = "no-prior-record"
	ReasonInvalidRetry  = "previous-fetch-invalid-retry"
	ReasonURLChanged    = "source-url-changed"
	ReasonTTLExpired    = "ttl-expired"
	ReasonWithinTTL     = "within-ttl"
)

// DefaultTTL applies to source sites without an explicit TTL configured.
const DefaultTTL = 7 * 24 * time.Hour

// TTLPolicy maps source sites to their re-fetch intervals. Company websites
// change less often than job-board profiles, so they typically get a longer
// TTL. Values are operational tuning knobs supplied by configuration.
type TTLPolicy struct {
	Default time.Duration
	PerSite map[string]time.Duration
}

// TTL returns the configured TTL for a source site.
func (p TTLPolicy) TTL(sourceSite string) time.Duration {
	if ttl, ok := p.PerSite[sourceSite]; ok && ttl > 0 {
		return ttl
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}

// Decision is the outcome of a freshness check.
type Decision struct {
	ShouldScrape bool
	Reason       string
}

// CacheStore is the narrow persistence surface the gate needs.
type CacheStore interface {
	GetSourceCache(ctx context.Context, companyID uuid.UUID, sourceSite string) (*store.CompanySourceCache, error)
	RecordSourceSuccess(ctx context.Context, companyID uuid.UUID, sourceSite, sourceURL string) error
	MarkSourceInvalid(ctx context.Context, companyID uuid.UUID, sourceSite, reason string) error
}

// Gate applies the TTL policy over the source-cache store.
type Gate struct {
	cache  CacheStore
	policy TTLPolicy
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewGate creates a gate with the given TTL policy.
func NewGate(cache CacheStore, policy TTLPolicy, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cache: cache, policy: policy, logger: logger, now: time.Now}
}

// ShouldScrape evaluates the decision table for a (company, source site) pair,
// in order: missing entry, invalid previous fetch, changed URL, expired TTL.
// Anything else is fresh.
func (g *Gate) ShouldScrape(ctx context.Context, companyID uuid.UUID, sourceSite, sourceURL string) (Decision, error) {
	entry, err := g.cache.GetSourceCache(ctx, companyID, sourceSite)
	if err != nil {
		return Decision{}, fmt.Errorf("freshness lookup: %w", err)
	}

	if entry == nil {
		return Decision{ShouldScrape: true, Reason: ReasonNoPriorRecord}, nil
	}
	if !entry.IsValid {
		return Decision{ShouldScrape: true, Reason: ReasonInvalidRetry}, nil
	}
	if entry.SourceURL != sourceURL {
		return Decision{ShouldScrape: true, Reason: ReasonURLChanged}, nil
	}
	if entry.LastScrapedAt == nil || g.now().Sub(*entry.LastScrapedAt) > g.policy.TTL(sourceSite) {
		return Decision{ShouldScrape: true, Reason: ReasonTTLExpired}, nil
	}
	return Decision{ShouldScrape: false, Reason: ReasonWithinTTL}, nil
}

// RecordSuccess marks a successful fetch of the source. Idempotent upsert.
func (g *Gate) RecordSuccess(ctx context.Context, companyID uuid.UUID, sourceSite, sourceURL string) error {
	if err := g.cache.RecordSourceSuccess(ctx, companyID, sourceSite, sourceURL); err != nil {
		return fmt.Errorf("record source success: %w", err)
	}
	return nil
}

// MarkInvalid marks the source as invalid with a reason. Idempotent upsert;
// the entry is retried on the next gate check (invalid entries always scrape).
func (g *Gate) MarkInvalid(ctx context.Context, companyID uuid.UUID, sourceSite, reason string) error {
	if err := g.cache.MarkSourceInvalid(ctx, companyID, sourceSite, reason); err != nil {
		return fmt.Errorf("mark source invalid: %w", err)
	}
	g.logger.Warn("company source marked invalid",
		"company_id", companyID,
		"source_site", sourceSite,
		"reason", reason,
	)
	return nil
}
