package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velin/jobradar/internal/dedup"
	"github.com/velin/jobradar/internal/fetch"
	"github.com/velin/jobradar/internal/freshness"
	"github.com/velin/jobradar/internal/orchestrator"
	"github.com/velin/jobradar/internal/scoring"
	"github.com/velin/jobradar/internal/sites"
	"github.com/velin/jobradar/internal/store"
	"github.com/velin/jobradar/internal/types"
)

// fakeStore is an in-memory Store plus the freshness gate's cache surface.
type fakeStore struct {
	mu        sync.Mutex
	postings  map[uuid.UUID]*store.Posting
	companies map[string]*store.Company
	scores    []*store.CompanyScore
	caches    map[string]*store.CompanySourceCache
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		postings:  map[uuid.UUID]*store.Posting{},
		companies: map[string]*store.Company{},
		caches:    map[string]*store.CompanySourceCache{},
	}
}

func (f *fakeStore) GetPostingBySourceURL(_ context.Context, sourceURL string) (*store.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.postings {
		if p.SourceURL == sourceURL {
			return clonePosting(p), nil
		}
		for _, ref := range p.ScrapedSites {
			if ref.URL == sourceURL {
				return clonePosting(p), nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) GetPostingByExternalID(_ context.Context, sourceSite, externalID string) (*store.Posting, error) {
	if externalID == "" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.postings {
		if p.ExternalIDs[sourceSite] == externalID {
			return clonePosting(p), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindCandidatePostings(_ context.Context, _, _ string, _ time.Time) ([]store.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Posting
	for _, p := range f.postings {
		if p.Status == store.StatusActive {
			out = append(out, *clonePosting(p))
		}
	}
	return out, nil
}

func (f *fakeStore) MutatePosting(_ context.Context, id uuid.UUID, mutate func(*store.Posting) error) (*store.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.postings[id]
	if !ok {
		return nil, fmt.Errorf("posting not found: %s", id)
	}
	copied := clonePosting(p)
	if err := mutate(copied); err != nil {
		return nil, err
	}
	copied.UpdatedAt = time.Now()
	f.postings[id] = copied
	return clonePosting(copied), nil
}

func (f *fakeStore) FindOrCreateCompany(_ context.Context, name string) (*store.Company, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := store.NormalizeName(name)
	if c, ok := f.companies[key]; ok {
		return c, false, nil
	}
	c := &store.Company{ID: uuid.New(), Name: name, NameNormalized: key}
	f.companies[key] = c
	return c, true, nil
}

func (f *fakeStore) CreatePosting(_ context.Context, p *store.Posting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.postings[p.ID] = clonePosting(p)
	return nil
}

func (f *fakeStore) UpdatePostingStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.postings[id]
	if !ok {
		return fmt.Errorf("posting not found: %s", id)
	}
	p.Status = status
	return nil
}

func (f *fakeStore) SaveCompanyScore(_ context.Context, score *store.CompanyScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
	return nil
}

func (f *fakeStore) UpdateCompanyWebsite(_ context.Context, id uuid.UUID, website string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.ID == id {
			c.Website = &website
		}
	}
	return nil
}

func (f *fakeStore) UpdateCompanyIndustry(_ context.Context, id uuid.UUID, industry string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.ID == id {
			c.Industry = &industry
		}
	}
	return nil
}

func (f *fakeStore) GetPostingByID(_ context.Context, id uuid.UUID) (*store.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.postings[id]
	if !ok {
		return nil, nil
	}
	return clonePosting(p), nil
}

func (f *fakeStore) GetStats(_ context.Context) (*types.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &types.Stats{TotalCompanies: len(f.companies), PerSiteCounts: map[string]int{}}
	for _, p := range f.postings {
		stats.TotalVacancies++
		if p.Status == store.StatusActive {
			stats.ActiveVacancies++
		}
		for site := range p.ScrapedSites {
			stats.PerSiteCounts[site]++
		}
	}
	return stats, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetSourceCache(_ context.Context, companyID uuid.UUID, sourceSite string) (*store.CompanySourceCache, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caches[companyID.String()+"|"+sourceSite], nil
}

func (f *fakeStore) RecordSourceSuccess(_ context.Context, companyID uuid.UUID, sourceSite, sourceURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.caches[companyID.String()+"|"+sourceSite] = &store.CompanySourceCache{
		CompanyID:     companyID,
		SourceSite:    sourceSite,
		SourceURL:     sourceURL,
		LastScrapedAt: &now,
		IsValid:       true,
	}
	return nil
}

func (f *fakeStore) MarkSourceInvalid(_ context.Context, companyID uuid.UUID, sourceSite, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caches[companyID.String()+"|"+sourceSite] = &store.CompanySourceCache{
		CompanyID:     companyID,
		SourceSite:    sourceSite,
		IsValid:       false,
		InvalidReason: &reason,
	}
	return nil
}

func clonePosting(p *store.Posting) *store.Posting {
	copied := *p
	copied.ExternalIDs = map[string]string{}
	for k, v := range p.ExternalIDs {
		copied.ExternalIDs[k] = v
	}
	copied.ScrapedSites = map[string]store.SourceRef{}
	for k, v := range p.ScrapedSites {
		copied.ScrapedSites[k] = v
	}
	return &copied
}

// fakeFetcher serves canned pages by URL.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*fetch.Result
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, &fetch.Error{URL: url, Message: "unexpected status 404", Retryable: false}
}

func (f *fakeFetcher) setPage(url string, page *fetch.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages == nil {
		f.pages = map[string]*fetch.Result{}
	}
	f.pages[url] = page
}

// fakeParser returns preset listings without touching HTML.
type fakeParser struct {
	site    string
	listing []types.RawPosting
	detail  *types.DetailPage
}

func (p *fakeParser) Site() string       { return p.site }
func (p *fakeParser) ListingURL() string { return "https://" + p.site + "/jobs" }
func (p *fakeParser) ParseListing(string) ([]types.RawPosting, error) {
	return p.listing, nil
}
func (p *fakeParser) ParseDetail(string) (*types.DetailPage, error) {
	if p.detail == nil {
		return &types.DetailPage{}, nil
	}
	return p.detail, nil
}

type fakeExtractor struct {
	mu           sync.Mutex
	configured   bool
	vacancy      *types.ExtractionResult
	vacancyErr   error
	attrs        *types.CompanyAttributes
	attrsErr     error
	vacancyCalls int
	lastContent  string
}

func (f *fakeExtractor) IsConfigured() bool { return f.configured }
func (f *fakeExtractor) ExtractVacancy(_ context.Context, content string) (*types.ExtractionResult, error) {
	f.mu.Lock()
	f.vacancyCalls++
	f.lastContent = content
	f.mu.Unlock()
	return f.vacancy, f.vacancyErr
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vacancyCalls
}

func (f *fakeExtractor) content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastContent
}
func (f *fakeExtractor) AnalyzeCompanyProfile(context.Context, string, string) (*types.CompanyAttributes, error) {
	return f.attrs, f.attrsErr
}

func rawPosting(site, id, title, company string) types.RawPosting {
	return types.RawPosting{
		Title:       title,
		CompanyName: company,
		Location:    "Sofia",
		PostedAt:    time.Now().Add(-24 * time.Hour),
		SourceSite:  site,
		SourceURL:   "https://" + site + "/job/" + id,
		ExternalID:  id,
	}
}

func listingPage(parser *fakeParser) (string, *fetch.Result) {
	url := parser.ListingURL()
	return url, &fetch.Result{URL: url, HTML: "<html></html>", StatusCode: 200}
}

func newTestService(t *testing.T, st *fakeStore, fetcher *fakeFetcher, extractor AIExtractor, parsers ...sites.Parser) *Service {
	t.Helper()
	config := DefaultConfig()
	// One site at a time keeps cross-site ordering deterministic.
	config.SubConcurrency = 1
	config.InterRequestDelay = 0
	config.AnalysisEnabled = false
	svc, err := New(Deps{
		Store:     st,
		Detector:  dedup.NewDetector(st, 0, nil),
		Gate:      freshness.NewGate(st, freshness.TTLPolicy{}, nil),
		Scorer:    scoring.NewEngine(nil),
		Extractor: extractor,
		Fetcher:   fetcher,
		Registry:  sites.NewRegistry(parsers...),
	}, config)
	require.NoError(t, err)
	return svc
}

func TestRunScrape_NewPostings(t *testing.T) {
	parser := &fakeParser{site: "dev.bg", listing: []types.RawPosting{
		rawPosting("dev.bg", "go-dev-1", "Go Developer", "Acme Ltd"),
		rawPosting("dev.bg", "java-dev-2", "Java Developer", "Globex"),
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	url, page := listingPage(parser)
	fetcher.pages[url] = page

	st := newFakeStore()
	svc := newTestService(t, st, fetcher, nil, parser)
	svc.Start()
	defer svc.Stop()

	result, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 2, result.NewVacancies)
	assert.Equal(t, 0, result.UpdatedVacancies)
	assert.Equal(t, 2, result.NewCompanies)
	assert.Empty(t, result.Errors)
	assert.Len(t, st.postings, 2)
}

func TestRunScrape_SecondRunIsIdempotent(t *testing.T) {
	parser := &fakeParser{site: "dev.bg", listing: []types.RawPosting{
		rawPosting("dev.bg", "go-dev-1", "Go Developer", "Acme Ltd"),
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	url, page := listingPage(parser)
	fetcher.pages[url] = page

	st := newFakeStore()
	svc := newTestService(t, st, fetcher, nil, parser)
	svc.Start()
	defer svc.Stop()

	first, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.NewVacancies)

	second, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, second.TotalFound)
	assert.Equal(t, 0, second.NewVacancies)
	assert.Equal(t, 1, second.UpdatedVacancies)
	assert.Equal(t, 0, second.NewCompanies)
	assert.Len(t, st.postings, 1)
}

func TestRunScrape_CrossSourceMerge(t *testing.T) {
	devBG := &fakeParser{site: "dev.bg", listing: []types.RawPosting{
		rawPosting("dev.bg", "go-dev-1", "Senior Go Developer", "Acme Ltd"),
	}}
	jobsBG := &fakeParser{site: "jobs.bg", listing: []types.RawPosting{
		rawPosting("jobs.bg", "12345", "Senior Go Developer", "Acme Ltd"),
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	for _, parser := range []*fakeParser{devBG, jobsBG} {
		url, page := listingPage(parser)
		fetcher.pages[url] = page
	}

	st := newFakeStore()
	svc := newTestService(t, st, fetcher, nil, devBG, jobsBG)
	svc.Start()
	defer svc.Stop()

	result, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 1, result.NewVacancies)
	assert.Equal(t, 1, result.UpdatedVacancies)
	require.Len(t, st.postings, 1)

	for _, p := range st.postings {
		assert.Equal(t, "go-dev-1", p.ExternalIDs["dev.bg"])
		assert.Equal(t, "12345", p.ExternalIDs["jobs.bg"])
		assert.Contains(t, p.ScrapedSites, "dev.bg")
		assert.Contains(t, p.ScrapedSites, "jobs.bg")
	}
}

func TestRunScrape_PartialFailure(t *testing.T) {
	good := &fakeParser{site: "dev.bg", listing: []types.RawPosting{
		rawPosting("dev.bg", "go-dev-1", "Go Developer", "Acme Ltd"),
	}}
	broken := &fakeParser{site: "jobs.bg"}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	url, page := listingPage(good)
	fetcher.pages[url] = page
	// jobs.bg listing is absent, so its fetch fails with a 404.

	st := newFakeStore()
	svc := newTestService(t, st, fetcher, nil, good, broken)
	svc.Start()
	defer svc.Stop()

	result, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err, "partial failures must not fail the run")

	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, 1, result.NewVacancies)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "jobs.bg")
}

func TestRunScrape_LimitCapsPerSite(t *testing.T) {
	parser := &fakeParser{site: "dev.bg", listing: []types.RawPosting{
		rawPosting("dev.bg", "a", "Go Developer", "Acme Ltd"),
		rawPosting("dev.bg", "b", "Java Developer", "Globex"),
		rawPosting("dev.bg", "c", "Rust Developer", "Initech"),
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	url, page := listingPage(parser)
	fetcher.pages[url] = page

	st := newFakeStore()
	svc := newTestService(t, st, fetcher, nil, parser)
	svc.Start()
	defer svc.Stop()

	result, err := svc.RunScrape(context.Background(), ScrapeOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFound)
	assert.Len(t, st.postings, 2)
}

func TestExecuteExtraction_FillsPosting(t *testing.T) {
	st := newFakeStore()
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		CompanyName:  "Acme Ltd",
		SourceSite:   "dev.bg",
		SourceURL:    "https://dev.bg/job/go-dev-1",
		ExternalIDs:  map[string]string{"dev.bg": "go-dev-1"},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
	}
	require.NoError(t, st.CreatePosting(context.Background(), posting))

	detailURL := "https://dev.bg/job/go-dev-1/detail"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		detailURL: {URL: detailURL, HTML: "<div class='job_description'>" + strings.Repeat("Build Go services. ", 40) + "</div>"},
	}}
	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{
		Seniority:    "senior",
		RemotePolicy: "hybrid",
		Technologies: []string{"Go", "PostgreSQL"},
		Requirements: []string{"5 years of Go"},
		SalaryMin:    4000,
		SalaryMax:    6000,
	}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: posting.ID, DetailURL: detailURL}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	require.Equal(t, orchestrator.OutcomeSuccess, outcome.Code, "outcome error: %v", outcome.Err)

	stored, err := st.GetPostingByID(context.Background(), posting.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Extraction)
	assert.Equal(t, "senior", stored.Extraction.Seniority)
	assert.Equal(t, "hybrid", stored.Extraction.RemotePolicy)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, stored.Technologies)
	require.NotNil(t, stored.SalaryMin)
	assert.Equal(t, 4000, *stored.SalaryMin)
	require.NotNil(t, stored.ContentHash)
}

func TestRunScrape_ReextractsChangedDetailOnMerge(t *testing.T) {
	detailURL := "https://dev.bg/job/go-dev-1/detail"
	raw := rawPosting("dev.bg", "go-dev-1", "Go Developer", "Acme Ltd")
	raw.DetailURL = detailURL
	parser := &fakeParser{site: "dev.bg", listing: []types.RawPosting{raw}}

	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{}}
	url, page := listingPage(parser)
	fetcher.pages[url] = page
	fetcher.setPage(detailURL, &fetch.Result{URL: detailURL,
		HTML: "<div class='job_description'>First version of the role.</div>"})

	st := newFakeStore()
	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{Seniority: "mid"}}
	svc := newTestService(t, st, fetcher, extractor, parser)
	svc.Start()
	defer svc.Stop()

	first, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.NewVacancies)

	require.Eventually(t, func() bool {
		p, err := st.GetPostingBySourceURL(context.Background(), raw.SourceURL)
		return err == nil && p != nil && p.Extraction != nil && extractor.calls() == 1
	}, 2*time.Second, 10*time.Millisecond, "first extraction never completed")

	fetcher.setPage(detailURL, &fetch.Result{URL: detailURL,
		HTML: "<div class='job_description'>Rewritten role description with new duties.</div>"})

	second, err := svc.RunScrape(context.Background(), ScrapeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, second.UpdatedVacancies)

	assert.Eventually(t, func() bool { return extractor.calls() == 2 },
		2*time.Second, 10*time.Millisecond, "changed detail content was not re-extracted")
}

func TestExecuteExtraction_UnchangedContentSkipsModel(t *testing.T) {
	st := newFakeStore()
	content := "Stable role description."
	hash := store.HashContent(content)
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		SourceSite:   "dev.bg",
		SourceURL:    "https://dev.bg/job/go-dev-1",
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
		ContentHash:  &hash,
		Extraction:   &store.Extraction{Seniority: "mid", ExtractedAt: time.Now()},
	}
	require.NoError(t, st.CreatePosting(context.Background(), posting))

	detailURL := "https://dev.bg/job/go-dev-1/detail"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		detailURL: {URL: detailURL, HTML: "<div class='job_description'>" + content + "</div>"},
	}}
	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{Seniority: "senior"}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: posting.ID, DetailURL: detailURL, ContentHash: hash}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	require.Equal(t, orchestrator.OutcomeSuccess, outcome.Code, "outcome error: %v", outcome.Err)
	assert.Zero(t, extractor.calls())

	stored, err := st.GetPostingByID(context.Background(), posting.ID)
	require.NoError(t, err)
	assert.Equal(t, "mid", stored.Extraction.Seniority)
}

func TestExecuteExtraction_BrowserFallbackForThinPages(t *testing.T) {
	st := newFakeStore()
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		SourceSite:   "dev.bg",
		SourceURL:    "https://dev.bg/job/go-dev-1",
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
	}
	require.NoError(t, st.CreatePosting(context.Background(), posting))

	detailURL := "https://dev.bg/job/go-dev-1/detail"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		detailURL: {URL: detailURL, HTML: "<div class='job_description'>Loading...</div>"},
	}}
	rendered := "<div class='job_description'>" +
		strings.Repeat("Design and run Go services across the platform. ", 20) + "</div>"

	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{Seniority: "senior"}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})
	var renderedURL string
	svc.renderer = func(_ context.Context, url string) (string, error) {
		renderedURL = url
		return rendered, nil
	}

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: posting.ID, DetailURL: detailURL}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	require.Equal(t, orchestrator.OutcomeSuccess, outcome.Code, "outcome error: %v", outcome.Err)

	assert.Equal(t, detailURL, renderedURL)
	assert.Greater(t, len(extractor.content()), fetch.MinContentLength)
	assert.Contains(t, extractor.content(), "Design and run Go services")

	stored, err := st.GetPostingByID(context.Background(), posting.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Description)
	assert.Contains(t, *stored.Description, "Design and run Go services")
}

func TestExecuteExtraction_BrowserFailureKeepsHTTPContent(t *testing.T) {
	st := newFakeStore()
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		SourceSite:   "dev.bg",
		SourceURL:    "https://dev.bg/job/go-dev-1",
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
	}
	require.NoError(t, st.CreatePosting(context.Background(), posting))

	detailURL := "https://dev.bg/job/go-dev-1/detail"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		detailURL: {URL: detailURL, HTML: "<div class='job_description'>Short but real.</div>"},
	}}
	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{Seniority: "senior"}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})
	svc.renderer = func(context.Context, string) (string, error) {
		return "", errors.New("chrome not installed")
	}

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: posting.ID, DetailURL: detailURL}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	require.Equal(t, orchestrator.OutcomeSuccess, outcome.Code, "outcome error: %v", outcome.Err)
	assert.Equal(t, "Short but real.", extractor.content())
}

func TestProcessPosting_CollapsesSecondaryDuplicates(t *testing.T) {
	st := newFakeStore()
	postedAt := time.Now().Add(-24 * time.Hour)
	seedA := &store.Posting{
		ID: uuid.New(), Title: "Senior Go Developer", CompanyName: "Acme Ltd",
		Location: "Sofia", PostedAt: postedAt,
		SourceSite: "dev.bg", SourceURL: "https://dev.bg/job/a",
		ExternalIDs:  map[string]string{"dev.bg": "a"},
		ScrapedSites: map[string]store.SourceRef{"dev.bg": {URL: "https://dev.bg/job/a"}},
		Status:       store.StatusActive,
	}
	seedB := &store.Posting{
		ID: uuid.New(), Title: "Senior Go Developer", CompanyName: "Acme Ltd",
		Location: "Sofia", PostedAt: postedAt,
		SourceSite: "linkedin", SourceURL: "https://www.linkedin.com/jobs/view/b",
		ExternalIDs:  map[string]string{"linkedin": "b"},
		ScrapedSites: map[string]store.SourceRef{"linkedin": {URL: "https://www.linkedin.com/jobs/view/b"}},
		Status:       store.StatusActive,
	}
	require.NoError(t, st.CreatePosting(context.Background(), seedA))
	require.NoError(t, st.CreatePosting(context.Background(), seedB))

	svc := newTestService(t, st, &fakeFetcher{}, nil, &fakeParser{site: "jobs.bg"})

	raw := rawPosting("jobs.bg", "12345", "Senior Go Developer", "Acme Ltd")
	created, updated, _, err := svc.processPosting(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, updated)

	var active, duplicate int
	var survivor *store.Posting
	for _, p := range st.postings {
		switch p.Status {
		case store.StatusActive:
			active++
			survivor = p
		case store.StatusDuplicate:
			duplicate++
		}
	}
	assert.Equal(t, 1, active, "the merge must leave one surviving record")
	assert.Equal(t, 1, duplicate, "the folded record keeps its row as a duplicate")
	require.NotNil(t, survivor)
	assert.Equal(t, "a", survivor.ExternalIDs["dev.bg"])
	assert.Equal(t, "b", survivor.ExternalIDs["linkedin"])
	assert.Equal(t, "12345", survivor.ExternalIDs["jobs.bg"])
}

func TestExecuteExtraction_EmptyResultIsPermanent(t *testing.T) {
	st := newFakeStore()
	posting := &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		SourceSite:   "dev.bg",
		SourceURL:    "https://dev.bg/job/go-dev-1",
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{},
		Status:       store.StatusActive,
	}
	require.NoError(t, st.CreatePosting(context.Background(), posting))

	detailURL := "https://dev.bg/job/go-dev-1/detail"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		detailURL: {URL: detailURL, HTML: "<main>sparse page</main>"},
	}}
	extractor := &fakeExtractor{configured: true, vacancy: &types.ExtractionResult{}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: posting.ID, DetailURL: detailURL}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	assert.Equal(t, orchestrator.OutcomePermanent, outcome.Code)
	assert.ErrorIs(t, outcome.Err, ErrAIResultEmpty)
}

func TestExecuteExtraction_UnconfiguredAIIsPermanent(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{}
	svc := newTestService(t, st, fetcher, &fakeExtractor{configured: false}, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobExtraction, orchestrator.PriorityMedium)
	job.Extraction = &orchestrator.ExtractionPayload{PostingID: uuid.New(), DetailURL: "https://dev.bg/x"}

	outcome := svc.executeExtraction(context.Background(), job, func(int) {})
	assert.Equal(t, orchestrator.OutcomePermanent, outcome.Code)
	assert.ErrorIs(t, outcome.Err, ErrAIUnavailable)
}

func TestExecuteAnalysis_ScoresCompany(t *testing.T) {
	st := newFakeStore()
	company, created, err := st.FindOrCreateCompany(context.Background(), "Acme Ltd")
	require.NoError(t, err)
	require.True(t, created)

	sourceURL := "https://acme.example/careers"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		sourceURL: {URL: sourceURL, HTML: "<html></html>", Text: "We build Go services with modern tooling."},
	}}
	extractor := &fakeExtractor{configured: true, attrs: &types.CompanyAttributes{
		Name:         "Acme Ltd",
		Industry:     "fintech",
		Size:         "medium",
		WorkModel:    "hybrid",
		Technologies: []string{"Go", "PostgreSQL", "Kubernetes"},
		Benefits:     []string{"health insurance", "training budget"},
	}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobAnalysis, orchestrator.PriorityLow)
	job.Analysis = &orchestrator.AnalysisPayload{
		CompanyID:  company.ID,
		SourceSite: store.SiteCompanySite,
		SourceURL:  sourceURL,
	}

	outcome := svc.executeAnalysis(context.Background(), job, func(int) {})
	require.Equal(t, orchestrator.OutcomeSuccess, outcome.Code, "outcome error: %v", outcome.Err)

	require.Len(t, st.scores, 1)
	score := st.scores[0]
	assert.Equal(t, company.ID, score.CompanyID)
	assert.GreaterOrEqual(t, score.OverallScore, 0)
	assert.LessOrEqual(t, score.OverallScore, 100)
	assert.NotEmpty(t, score.CategoryScores)

	cache, err := st.GetSourceCache(context.Background(), company.ID, store.SiteCompanySite)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.True(t, cache.IsValid)

	require.NotNil(t, st.companies["acme ltd"].Industry)
	assert.Equal(t, "fintech", *st.companies["acme ltd"].Industry)
	require.NotNil(t, st.companies["acme ltd"].Website)
	assert.Equal(t, sourceURL, *st.companies["acme ltd"].Website)
}

func TestExecuteAnalysis_DeadURLMarksSourceInvalid(t *testing.T) {
	st := newFakeStore()
	company, _, err := st.FindOrCreateCompany(context.Background(), "Acme Ltd")
	require.NoError(t, err)

	fetcher := &fakeFetcher{} // every URL 404s
	extractor := &fakeExtractor{configured: true}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobAnalysis, orchestrator.PriorityLow)
	job.Analysis = &orchestrator.AnalysisPayload{
		CompanyID:  company.ID,
		SourceSite: store.SiteCompanySite,
		SourceURL:  "https://gone.example/",
	}

	outcome := svc.executeAnalysis(context.Background(), job, func(int) {})
	assert.Equal(t, orchestrator.OutcomePermanent, outcome.Code)

	var validationErr *ValidationError
	assert.ErrorAs(t, outcome.Err, &validationErr)

	cache, err := st.GetSourceCache(context.Background(), company.ID, store.SiteCompanySite)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.False(t, cache.IsValid)
}

func TestExecuteAnalysis_EmptyProfileIsPermanent(t *testing.T) {
	st := newFakeStore()
	company, _, err := st.FindOrCreateCompany(context.Background(), "Acme Ltd")
	require.NoError(t, err)

	sourceURL := "https://acme.example/careers"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		sourceURL: {URL: sourceURL, Text: "nothing useful"},
	}}
	extractor := &fakeExtractor{configured: true, attrs: &types.CompanyAttributes{}}
	svc := newTestService(t, st, fetcher, extractor, &fakeParser{site: "dev.bg"})

	job := orchestrator.NewJob(orchestrator.JobAnalysis, orchestrator.PriorityLow)
	job.Analysis = &orchestrator.AnalysisPayload{
		CompanyID:  company.ID,
		SourceSite: store.SiteCompanySite,
		SourceURL:  sourceURL,
	}

	outcome := svc.executeAnalysis(context.Background(), job, func(int) {})
	assert.Equal(t, orchestrator.OutcomePermanent, outcome.Code)
	assert.ErrorIs(t, outcome.Err, ErrAIResultEmpty)
	assert.Empty(t, st.scores)
}

func TestGetStats(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.CreatePosting(context.Background(), &store.Posting{
		ID:           uuid.New(),
		Title:        "Go Developer",
		SourceSite:   "dev.bg",
		ExternalIDs:  map[string]string{},
		ScrapedSites: map[string]store.SourceRef{"dev.bg": {URL: "https://dev.bg/job/1"}},
		Status:       store.StatusActive,
	}))
	_, _, err := st.FindOrCreateCompany(context.Background(), "Acme Ltd")
	require.NoError(t, err)

	svc := newTestService(t, st, &fakeFetcher{}, nil, &fakeParser{site: "dev.bg"})

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVacancies)
	assert.Equal(t, 1, stats.ActiveVacancies)
	assert.Equal(t, 1, stats.TotalCompanies)
	assert.Equal(t, 1, stats.PerSiteCounts["dev.bg"])
}

func TestNew_RequiresCoreDeps(t *testing.T) {
	_, err := New(Deps{}, DefaultConfig())
	assert.ErrorContains(t, err, "store is required")
}
