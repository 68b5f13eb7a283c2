package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velin/jobradar/internal/dedup"
	"github.com/velin/jobradar/internal/orchestrator"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

// resultSink accumulates a scrape run's counters across concurrent site
// scrapes.
type resultSink struct {
	mu     sync.Mutex
	result types.ScrapingResult
}

func (r *resultSink) addError(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Errors = append(r.result.Errors, fmt.Sprintf(format, args...))
}

func (r *resultSink) count(created, updated, companyCreated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.TotalFound++
	if created {
		r.result.NewVacancies++
	}
	if updated {
		r.result.UpdatedVacancies++
	}
	if companyCreated {
		r.result.NewCompanies++
	}
}

func (r *resultSink) snapshot() *types.ScrapingResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := r.result
	copied.Errors = append([]string(nil), r.result.Errors...)
	return &copied
}

// scrapeSite fetches one site's listing and pushes every posting through the
// duplicate detector. Per-posting failures land in the sink and never abort
// the remaining postings; only listing-level failures return an error.
func (s *Service) scrapeSite(ctx context.Context, site string, limit int, sink *resultSink) error {
	parser, err := s.registry.Get(site)
	if err != nil {
		return err
	}

	listing, err := s.fetcher.Fetch(ctx, parser.ListingURL())
	if err != nil {
		return fmt.Errorf("failed to fetch %s listing: %w", site, err)
	}

	postings, err := parser.ParseListing(listing.HTML)
	if err != nil {
		return fmt.Errorf("failed to parse %s listing: %w", site, err)
	}
	if limit > 0 && len(postings) > limit {
		postings = postings[:limit]
	}
	s.logger.Info("parsed listing", "site", site, "postings", len(postings))

	for _, raw := range postings {
		// Cooperative early-exit between postings.
		if err := ctx.Err(); err != nil {
			return err
		}
		created, updated, companyCreated, err := s.processPosting(ctx, raw)
		if err != nil {
			sink.addError("%s: %s: %v", site, raw.Title, err)
			continue
		}
		sink.count(created, updated, companyCreated)
	}
	return nil
}

// processPosting runs the dedup flow for one raw posting: exact match, then
// fuzzy candidates, then insert. Follow-up extraction and analysis jobs are
// enqueued as side effects.
func (s *Service) processPosting(ctx context.Context, raw types.RawPosting) (created, updated, companyCreated bool, err error) {
	var company *store.Company
	if strings.TrimSpace(raw.CompanyName) != "" {
		company, companyCreated, err = s.store.FindOrCreateCompany(ctx, raw.CompanyName)
		if err != nil {
			return false, false, false, err
		}
	}

	exact, err := s.detector.FindExactMatch(ctx, raw)
	if err != nil {
		return false, false, companyCreated, err
	}
	if exact != nil {
		merged, err := s.detector.Merge(ctx, exact.ID, raw)
		if err != nil {
			return false, false, companyCreated, err
		}
		s.maybeEnqueueExtraction(merged, raw)
		s.maybeEnqueueAnalysis(ctx, company, raw)
		return false, true, companyCreated, nil
	}

	candidates, err := s.detector.FindCandidates(ctx, raw)
	if err != nil {
		return false, false, companyCreated, err
	}
	if len(candidates) > 0 && candidates[0].AutoMergeable() {
		merged, err := s.detector.Merge(ctx, candidates[0].Posting.ID, raw)
		if err != nil {
			return false, false, companyCreated, err
		}
		s.collapseDuplicates(ctx, merged.ID, candidates[1:])
		s.maybeEnqueueExtraction(merged, raw)
		s.maybeEnqueueAnalysis(ctx, company, raw)
		return false, true, companyCreated, nil
	}

	posting := postingFromRaw(raw, company)
	if err := s.store.CreatePosting(ctx, posting); err != nil {
		return false, false, companyCreated, err
	}
	s.logger.Debug("created posting",
		"id", posting.ID,
		"title", posting.Title,
		"site", posting.SourceSite)

	s.maybeEnqueueExtraction(posting, raw)
	s.maybeEnqueueAnalysis(ctx, company, raw)
	return true, false, companyCreated, nil
}

// collapseDuplicates folds lower-ranked auto-mergeable candidates into the
// surviving record. A folded posting is never deleted: it keeps its row under
// the duplicate status so its source URL stays resolvable.
func (s *Service) collapseDuplicates(ctx context.Context, targetID uuid.UUID, rest []dedup.ScoredCandidate) {
	for _, candidate := range rest {
		if !candidate.AutoMergeable() || candidate.Posting.ID == targetID {
			continue
		}
		if _, err := s.detector.Merge(ctx, targetID, rawFromPosting(candidate.Posting)); err != nil {
			s.logger.Warn("failed to fold duplicate posting",
				"target_id", targetID,
				"duplicate_id", candidate.Posting.ID,
				"error", err)
			continue
		}
		if err := s.store.UpdatePostingStatus(ctx, candidate.Posting.ID, store.StatusDuplicate); err != nil {
			s.logger.Warn("failed to mark posting duplicate",
				"posting_id", candidate.Posting.ID,
				"error", err)
			continue
		}
		s.logger.Info("collapsed duplicate posting",
			"target_id", targetID,
			"duplicate_id", candidate.Posting.ID,
			"overall", candidate.Overall)
	}
}

// rawFromPosting projects a stored posting back into the raw shape Merge
// consumes, carrying its provenance and fill-if-empty fields.
func rawFromPosting(p store.Posting) types.RawPosting {
	raw := types.RawPosting{
		Title:        p.Title,
		CompanyName:  p.CompanyName,
		Location:     p.Location,
		Technologies: p.Technologies,
		PostedAt:     p.PostedAt,
		SourceSite:   p.SourceSite,
		SourceURL:    p.SourceURL,
		ExternalID:   p.ExternalIDs[p.SourceSite],
	}
	if p.Description != nil {
		raw.Description = *p.Description
	}
	if p.SalaryMin != nil {
		raw.Salary = &types.SalaryRange{Min: *p.SalaryMin}
		if p.SalaryMax != nil {
			raw.Salary.Max = *p.SalaryMax
		}
		if p.Currency != nil {
			raw.Salary.Currency = *p.Currency
		}
	}
	return raw
}

// postingFromRaw builds a canonical posting record from parsed listing data.
func postingFromRaw(raw types.RawPosting, company *store.Company) *store.Posting {
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        raw.Title,
		CompanyName:  raw.CompanyName,
		Location:     raw.Location,
		Technologies: raw.Technologies,
		PostedAt:     raw.PostedAt,
		SourceSite:   raw.SourceSite,
		SourceURL:    raw.SourceURL,
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
	}
	if company != nil {
		posting.CompanyID = &company.ID
	}
	if raw.ExternalID != "" {
		posting.ExternalIDs[raw.SourceSite] = raw.ExternalID
	}
	posting.ScrapedSites[raw.SourceSite] = store.SourceRef{
		LastSeenAt: time.Now(),
		URL:        raw.SourceURL,
	}
	if raw.Description != "" {
		posting.Description = &raw.Description
		hash := store.HashContent(raw.Description)
		posting.ContentHash = &hash
	}
	if raw.Salary != nil {
		posting.SalaryMin = &raw.Salary.Min
		posting.SalaryMax = &raw.Salary.Max
		if raw.Salary.Currency != "" {
			posting.Currency = &raw.Salary.Currency
		}
	}
	return posting
}

// maybeEnqueueExtraction schedules AI enrichment when the AI service is
// configured and there is detail content to fetch. Re-seen postings get a job
// too; the extraction executor's content-hash check keeps unchanged pages
// from reaching the model again.
func (s *Service) maybeEnqueueExtraction(posting *store.Posting, raw types.RawPosting) {
	if s.extractor == nil || !s.extractor.IsConfigured() || raw.DetailURL == "" {
		return
	}

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{
		PostingID: posting.ID,
		DetailURL: raw.DetailURL,
	}
	if posting.ContentHash != nil {
		job.Extraction.ContentHash = *posting.ContentHash
	}
	if _, err := s.orch.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue extraction",
			"posting_id", posting.ID,
			"error", err)
	}
}

// maybeEnqueueAnalysis schedules company analysis when a source can be
// resolved for the company. When neither the parsed page nor the company
// record carries a URL, the website finder fills the gap, but only once per
// gate interval so the search API is not hit on every posting.
func (s *Service) maybeEnqueueAnalysis(ctx context.Context, company *store.Company, raw types.RawPosting) {
	if !s.config.AnalysisEnabled || company == nil {
		return
	}
	if s.extractor == nil || !s.extractor.IsConfigured() {
		return
	}

	sourceSite, sourceURL := analysisSource(raw)
	if sourceURL == "" && company.Website != nil && *company.Website != "" {
		sourceSite, sourceURL = store.SiteCompanySite, *company.Website
	}
	if sourceURL == "" {
		sourceSite, sourceURL = s.discoverWebsite(ctx, company)
	}
	if sourceURL == "" {
		return
	}

	s.enqueueAnalysis(ctx, company.ID, company.Name, sourceSite, sourceURL)
}

// discoverWebsite looks up a company's website via the search API. The gate
// is consulted first so discovery runs at most once per freshness interval.
func (s *Service) discoverWebsite(ctx context.Context, company *store.Company) (site, url string) {
	if s.finder == nil {
		return "", ""
	}
	decision, err := s.gate.ShouldScrape(ctx, company.ID, store.SiteCompanySite, "")
	if err != nil || !decision.ShouldScrape {
		return "", ""
	}
	discovered, err := s.finder.DiscoverCompanyWebsite(ctx, company.Name)
	if err != nil {
		s.logger.Warn("website discovery failed",
			"company", company.Name,
			"error", err)
		return "", ""
	}
	if discovered == "" {
		return "", ""
	}
	return store.SiteCompanySite, discovered
}

// enqueueAnalysis runs the freshness check for one (company, source) pairing
// and queues the analysis job when due.
func (s *Service) enqueueAnalysis(ctx context.Context, companyID uuid.UUID, companyName, sourceSite, sourceURL string) {
	if parsed, err := url.Parse(sourceURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		s.logger.Warn("skipping analysis for malformed company URL",
			"company", companyName,
			"url", sourceURL)
		return
	}

	decision, err := s.gate.ShouldScrape(ctx, companyID, sourceSite, sourceURL)
	if err != nil {
		s.logger.Warn("freshness check failed",
			"company", companyName,
			"site", sourceSite,
			"error", err)
		return
	}
	if !decision.ShouldScrape {
		s.logger.Debug("skipping company analysis",
			"company", companyName,
			"site", sourceSite,
			"reason", decision.Reason)
		return
	}

	job := orchestrator.NewJob(orchestrator.JobAnalysis, orchestrator.PriorityLow)
	job.Analysis = &orchestrator.AnalysisPayload{
		CompanyID:  companyID,
		SourceSite: sourceSite,
		SourceURL:  sourceURL,
	}
	if _, err := s.orch.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue company analysis",
			"company", companyName,
			"error", err)
		return
	}
	s.logger.Debug("enqueued company analysis",
		"company", companyName,
		"site", sourceSite,
		"reason", decision.Reason)
}

// analysisSource prefers the company's own website over its job-board
// profile: the website carries richer culture and benefits content.
func analysisSource(raw types.RawPosting) (site, url string) {
	if raw.CompanyWebsite != "" {
		return store.SiteCompanySite, raw.CompanyWebsite
	}
	if raw.CompanyProfileURL != "" {
		return raw.SourceSite, raw.CompanyProfileURL
	}
	return "", ""
}
