package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/velin/jobradar/internal/fetch"
	"github.com/velin/jobradar/internal/orchestrator"
	"github.com/velin/jobradar/internal/scoring"
	"github.com/velin/jobradar/internal/sites"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

// executeScrape handles a single-site scrape job.
func (s *Service) executeScrape(ctx context.Context, job *orchestrator.Job, progress orchestrator.ProgressFunc) orchestrator.Outcome {
	payload := job.Scrape
	progress(10)

	sink := &resultSink{}
	if err := s.scrapeSite(ctx, payload.Site, payload.Limit, sink); err != nil {
		return classifyScrapeError(err)
	}
	progress(90)

	s.storeResult(job.ID, sink.snapshot())
	progress(100)
	return orchestrator.Success()
}

// executeBatch fans a multi-site scrape out over a bounded worker group.
// Per-site failures land in the shared result as error strings; the batch
// itself only fails when the whole run is cancelled.
func (s *Service) executeBatch(ctx context.Context, job *orchestrator.Job, progress orchestrator.ProgressFunc) orchestrator.Outcome {
	payload := job.Batch
	siteList := payload.Sites
	if len(siteList) == 0 {
		siteList = s.registry.Sites()
	}
	progress(10)

	sink := &resultSink{}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.SubConcurrency)

	total := len(siteList)
	for i, site := range siteList {
		// Cooperative early-exit between site launches.
		if err := groupCtx.Err(); err != nil {
			break
		}
		if i > 0 && s.config.InterRequestDelay > 0 {
			select {
			case <-time.After(s.config.InterRequestDelay):
			case <-groupCtx.Done():
			}
		}

		site := site
		step := i
		group.Go(func() error {
			if err := s.scrapeSite(groupCtx, site, payload.Limit, sink); err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				sink.addError("%s: %v", site, err)
				s.logger.Warn("site scrape failed", "site", site, "error", err)
			}
			progress(10 + 80*(step+1)/total)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		// Only cancellation propagates out of the group.
		s.storeResult(job.ID, sink.snapshot())
		if errors.Is(err, context.DeadlineExceeded) {
			return orchestrator.Retryable(err)
		}
		return orchestrator.Permanent(err)
	}

	s.storeResult(job.ID, sink.snapshot())
	progress(100)
	return orchestrator.Success()
}

// executeExtraction fetches a posting's detail page and fills in the fields
// the listing did not carry. Empty AI output is a terminal condition, not a
// retry: the same content will produce the same emptiness.
func (s *Service) executeExtraction(ctx context.Context, job *orchestrator.Job, progress orchestrator.ProgressFunc) orchestrator.Outcome {
	payload := job.Extraction
	if s.extractor == nil || !s.extractor.IsConfigured() {
		return orchestrator.Permanent(ErrAIUnavailable)
	}

	posting, err := s.store.GetPostingByID(ctx, payload.PostingID)
	if err != nil {
		return orchestrator.Retryable(err)
	}
	if posting == nil {
		return orchestrator.Permanent(fmt.Errorf("posting %s not found", payload.PostingID))
	}
	progress(10)

	page, err := s.fetcher.Fetch(ctx, payload.DetailURL)
	if err != nil {
		if fetch.IsRetryable(err) {
			return orchestrator.Retryable(err)
		}
		return orchestrator.Permanent(err)
	}
	progress(30)

	// The site parser also pulls company URLs off the detail page; fall back
	// to generic text extraction for sites without a parser.
	var detail *types.DetailPage
	if parser, perr := s.registry.Get(posting.SourceSite); perr == nil {
		detail, _ = parser.ParseDetail(page.HTML)
	}
	content := ""
	if detail != nil {
		content = detail.Description
	}
	if content == "" {
		content, err = fetch.ExtractMainText(page.HTML,
			fetch.SiteDetailSelectors(posting.SourceSite),
			fetch.SiteNoiseSelectors(posting.SourceSite)...)
		if err != nil {
			return orchestrator.Permanent(err)
		}
	}

	content = s.renderThinPage(ctx, payload.DetailURL, content,
		fetch.SiteDetailSelectors(posting.SourceSite),
		fetch.SiteNoiseSelectors(posting.SourceSite)...)

	// Unchanged content means the previous extraction still holds.
	hash := store.HashContent(content)
	if payload.ContentHash != "" && hash == payload.ContentHash && posting.Extraction != nil {
		progress(100)
		return orchestrator.Success()
	}
	progress(50)

	extracted, err := s.extractor.ExtractVacancy(ctx, content)
	if err != nil {
		return orchestrator.Retryable(err)
	}
	if extracted.IsEmpty() {
		return orchestrator.Permanent(ErrAIResultEmpty)
	}
	progress(70)

	_, err = s.store.MutatePosting(ctx, posting.ID, func(p *store.Posting) error {
		if p.Description == nil || *p.Description == "" {
			p.Description = &content
		}
		if len(p.Technologies) == 0 {
			p.Technologies = extracted.Technologies
		}
		if p.SalaryMin == nil && extracted.SalaryMin > 0 {
			min, max := extracted.SalaryMin, extracted.SalaryMax
			p.SalaryMin = &min
			if max >= min {
				p.SalaryMax = &max
			}
		}
		p.ContentHash = &hash
		p.Extraction = &store.Extraction{
			Seniority:        extracted.Seniority,
			EmploymentType:   extracted.EmploymentType,
			RemotePolicy:     extracted.RemotePolicy,
			Responsibilities: extracted.Responsibilities,
			Requirements:     extracted.Requirements,
			Benefits:         extracted.Benefits,
			ExtractedAt:      time.Now(),
		}
		return nil
	})
	if err != nil {
		return orchestrator.Retryable(err)
	}
	progress(90)

	// Company URLs harvested from the detail page feed follow-up analysis.
	if detail != nil && posting.CompanyID != nil && s.config.AnalysisEnabled {
		if site, sourceURL := analysisSource(types.RawPosting{
			SourceSite:        posting.SourceSite,
			CompanyProfileURL: detail.CompanyProfileURL,
			CompanyWebsite:    detail.CompanyWebsite,
		}); sourceURL != "" {
			s.enqueueAnalysis(ctx, *posting.CompanyID, posting.CompanyName, site, sourceURL)
		}
	}

	s.logger.Info("extracted posting details",
		"posting_id", posting.ID,
		"technologies", len(extracted.Technologies))
	progress(100)
	return orchestrator.Success()
}

// executeAnalysis fetches a company source page, runs AI profiling and
// persists a fresh score. The freshness gate's cache is updated on both
// outcomes so the next scrape run makes the right call.
func (s *Service) executeAnalysis(ctx context.Context, job *orchestrator.Job, progress orchestrator.ProgressFunc) orchestrator.Outcome {
	payload := job.Analysis
	if s.extractor == nil || !s.extractor.IsConfigured() {
		return orchestrator.Permanent(ErrAIUnavailable)
	}
	progress(10)

	page, err := s.fetcher.Fetch(ctx, payload.SourceURL)
	if err != nil {
		if fetch.IsRetryable(err) {
			return orchestrator.Retryable(err)
		}
		// Dead URL: poison the cache entry so the gate stops retrying it.
		if markErr := s.gate.MarkInvalid(ctx, payload.CompanyID, payload.SourceSite, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark source invalid",
				"company_id", payload.CompanyID,
				"error", markErr)
		}
		return orchestrator.Permanent(&ValidationError{URL: payload.SourceURL, Reason: err.Error()})
	}
	progress(30)

	content := page.Text
	if content == "" {
		extracted, err := fetch.ExtractMainText(page.HTML, fetch.CompanyPageSelectors())
		if err != nil {
			return orchestrator.Permanent(err)
		}
		content = extracted
	}
	content = s.renderThinPage(ctx, payload.SourceURL, content, fetch.CompanyPageSelectors())

	if err := s.gate.RecordSuccess(ctx, payload.CompanyID, payload.SourceSite, payload.SourceURL); err != nil {
		s.logger.Warn("failed to record source fetch",
			"company_id", payload.CompanyID,
			"error", err)
	}
	progress(50)

	attrs, err := s.extractor.AnalyzeCompanyProfile(ctx, content, payload.SourceURL)
	if err != nil {
		return orchestrator.Retryable(err)
	}
	if attrs.IsEmpty() {
		return orchestrator.Permanent(ErrAIResultEmpty)
	}
	attrs.SourceKind = sourceKindFor(payload.SourceSite)
	progress(70)

	result := s.scorer.Score(*attrs)
	record := scoreRecord(payload.CompanyID, result)
	if err := s.store.SaveCompanyScore(ctx, record); err != nil {
		return orchestrator.Retryable(err)
	}
	progress(90)

	if payload.SourceSite == store.SiteCompanySite {
		if err := s.store.UpdateCompanyWebsite(ctx, payload.CompanyID, payload.SourceURL); err != nil {
			s.logger.Warn("failed to update company website",
				"company_id", payload.CompanyID,
				"error", err)
		}
	}
	if attrs.Industry != "" {
		if err := s.store.UpdateCompanyIndustry(ctx, payload.CompanyID, attrs.Industry); err != nil {
			s.logger.Warn("failed to update company industry",
				"company_id", payload.CompanyID,
				"error", err)
		}
	}

	s.logger.Info("scored company",
		"company_id", payload.CompanyID,
		"overall", result.Overall,
		"confidence", result.Confidence)
	progress(100)
	return orchestrator.Success()
}

// executeHealthCheck verifies the database connection.
func (s *Service) executeHealthCheck(ctx context.Context, job *orchestrator.Job, progress orchestrator.ProgressFunc) orchestrator.Outcome {
	if err := s.store.Ping(ctx); err != nil {
		return orchestrator.Retryable(err)
	}
	progress(100)
	return orchestrator.Success()
}

// renderThinPage retries a page through the headless browser when plain HTTP
// extracted too little text to be the real content, then re-extracts from the
// rendered HTML. Rendering failures keep the HTTP text: a thin page beats no
// page.
func (s *Service) renderThinPage(ctx context.Context, pageURL, text string, contentSelectors []string, noiseSelectors ...string) string {
	if s.renderer == nil || !fetch.ShouldUseBrowser(text) {
		return text
	}
	html, err := s.renderer(ctx, pageURL)
	if err != nil {
		s.logger.Warn("browser rendering failed", "url", pageURL, "error", err)
		return text
	}
	rendered, err := fetch.ExtractMainText(html, contentSelectors, noiseSelectors...)
	if err != nil || len(rendered) <= len(text) {
		return text
	}
	s.logger.Debug("browser rendering recovered page content",
		"url", pageURL,
		"http_chars", len(text),
		"rendered_chars", len(rendered))
	return rendered
}

// scoreRecord flattens an engine score into the persisted shape.
func scoreRecord(companyID uuid.UUID, result scoring.Score) *store.CompanyScore {
	categories := make(map[string]float64, len(result.CategoryScores))
	for category, value := range result.CategoryScores {
		categories[string(category)] = value
	}
	factors := make(map[string]float64, len(result.FactorScores))
	for factor, value := range result.FactorScores {
		factors[string(factor)] = value
	}
	return &store.CompanyScore{
		CompanyID:       companyID,
		OverallScore:    result.Overall,
		CategoryScores:  categories,
		FactorScores:    factors,
		Strengths:       result.Strengths,
		Concerns:        result.Concerns,
		Recommendations: result.Recommendations,
		ConfidenceLevel: result.Confidence,
	}
}

func sourceKindFor(sourceSite string) string {
	if sourceSite == store.SiteCompanySite {
		return types.SourceKindCompanySite
	}
	return types.SourceKindJobBoard
}

// classifyScrapeError maps a site-level scrape failure onto retry semantics.
// Unknown parser and bad-URL failures are permanent; everything else, network
// trouble included, gets retried.
func classifyScrapeError(err error) orchestrator.Outcome {
	if errors.Is(err, context.Canceled) {
		return orchestrator.Permanent(err)
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) && !fetchErr.Retryable {
		return orchestrator.Permanent(err)
	}
	var parseErr *sites.UnknownSiteError
	if errors.As(err, &parseErr) {
		return orchestrator.Permanent(err)
	}
	return orchestrator.Retryable(err)
}
