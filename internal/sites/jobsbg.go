package sites

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/velin/jobradar/internal/types"
)

// JobsBG parses jobs.bg listing and detail pages.
type JobsBG struct {
	// Keyword narrows the listing search, e.g. "golang".
	Keyword string

	now func() time.Time
}

func NewJobsBG(keyword string) *JobsBG {
	return &JobsBG{Keyword: keyword, now: time.Now}
}

func (j *JobsBG) Site() string { return "jobs.bg" }

func (j *JobsBG) ListingURL() string {
	if j.Keyword != "" {
		return "https://www.jobs.bg/front_job_search.php?keywords%5B%5D=" + j.Keyword
	}
	return "https://www.jobs.bg/front_job_search.php"
}

func (j *JobsBG) ParseListing(html string) ([]types.RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse jobs.bg listing: %w", err)
	}

	var postings []types.RawPosting
	doc.Find(".job-wrap, .mdc-card").Each(func(_ int, card *goquery.Selection) {
		link, _ := card.Find("a.black-link-b, a[href*='job/']").First().Attr("href")
		title := strings.TrimSpace(card.Find(".card-title, a.black-link-b").First().Text())
		if title == "" || link == "" {
			return
		}
		if !strings.HasPrefix(link, "http") {
			link = "https://www.jobs.bg/" + strings.TrimPrefix(link, "/")
		}

		locationAndSalary := strings.TrimSpace(card.Find(".card-info.secondary-text").First().Text())
		location, salary := splitLocationSalary(locationAndSalary)

		posting := types.RawPosting{
			Title:       title,
			CompanyName: strings.TrimSpace(card.Find(".secondary-text .company-name, .card-logo-info").First().Text()),
			Location:    location,
			Salary:      salary,
			PostedAt:    j.parseDate(strings.TrimSpace(card.Find(".card-date, .date").First().Text())),
			SourceSite:  j.Site(),
			SourceURL:   link,
			ExternalID:  externalIDFromURL(link),
			DetailURL:   link,
		}
		postings = append(postings, posting)
	})
	return postings, nil
}

func (j *JobsBG) ParseDetail(html string) (*types.DetailPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse jobs.bg detail page: %w", err)
	}

	detail := &types.DetailPage{
		Description: strings.TrimSpace(doc.Find(".jobreview, .job-view, #description").First().Text()),
	}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if strings.Contains(href, "jobs.bg/company/") && detail.CompanyProfileURL == "" {
			if !strings.HasPrefix(href, "http") {
				href = "https://www.jobs.bg/" + strings.TrimPrefix(href, "/")
			}
			detail.CompanyProfileURL = href
		}
	})
	return detail, nil
}

// splitLocationSalary separates "София; 3000 - 4500 BGN" style info lines.
func splitLocationSalary(text string) (string, *types.SalaryRange) {
	parts := strings.SplitN(text, ";", 2)
	location := strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return location, nil
	}
	return location, parseSalary(strings.TrimSpace(parts[1]))
}

// parseSalary reads "3000 - 4500 BGN" ranges. Anything else yields nil.
func parseSalary(text string) *types.SalaryRange {
	fields := strings.Fields(text)
	if len(fields) < 4 || fields[1] != "-" {
		return nil
	}
	min, err1 := strconv.Atoi(fields[0])
	max, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || min <= 0 || max < min {
		return nil
	}
	return &types.SalaryRange{Min: min, Max: max, Currency: fields[3]}
}

func (j *JobsBG) parseDate(text string) time.Time {
	now := j.now()
	text = strings.ToLower(strings.TrimSpace(text))
	switch {
	case text == "" || strings.Contains(text, "днес") || strings.Contains(text, "today"):
		return now
	case strings.Contains(text, "вчера") || strings.Contains(text, "yesterday"):
		return now.AddDate(0, 0, -1)
	}
	if t, err := time.Parse("02.01.2006", text); err == nil {
		return t
	}
	if t, err := time.Parse("02.01", text); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return now
}
