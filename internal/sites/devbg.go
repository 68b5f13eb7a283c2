package sites

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/velin/jobradar/internal/types"
)

// DevBG parses dev.bg, the Bulgarian IT job board.
type DevBG struct {
	// Category narrows the listing to one dev.bg category slug, e.g.
	// "backend-development". Empty means the general listing.
	Category string

	now func() time.Time
}

func NewDevBG(category string) *DevBG {
	return &DevBG{Category: category, now: time.Now}
}

func (d *DevBG) Site() string { return "dev.bg" }

func (d *DevBG) ListingURL() string {
	if d.Category != "" {
		return fmt.Sprintf("https://dev.bg/company/jobs/%s/", d.Category)
	}
	return "https://dev.bg/company/jobs/"
}

// ParseListing extracts postings from a dev.bg listing page. Cards missing a
// title or link are skipped rather than failing the whole page.
func (d *DevBG) ParseListing(html string) ([]types.RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dev.bg listing: %w", err)
	}

	var postings []types.RawPosting
	doc.Find(".job-list-item").Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h6.job-title, .job-title").First().Text())
		link, _ := card.Find("a.overlay-link, a").First().Attr("href")
		if title == "" || link == "" {
			return
		}

		var technologies []string
		card.Find(".tech-stack .badge, .badge-tech").Each(func(_ int, badge *goquery.Selection) {
			if tech := strings.TrimSpace(badge.Text()); tech != "" {
				technologies = append(technologies, tech)
			}
		})

		posting := types.RawPosting{
			Title:        title,
			CompanyName:  strings.TrimSpace(card.Find(".company-name").First().Text()),
			Location:     strings.TrimSpace(card.Find(".badge-city, .location").First().Text()),
			Technologies: technologies,
			PostedAt:     d.parseDate(card.Find(".date, time").First()),
			SourceSite:   d.Site(),
			SourceURL:    link,
			ExternalID:   externalIDFromURL(link),
			DetailURL:    link,
		}
		postings = append(postings, posting)
	})
	return postings, nil
}

// ParseDetail extracts the description and company URLs from a vacancy page.
func (d *DevBG) ParseDetail(html string) (*types.DetailPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dev.bg detail page: %w", err)
	}

	detail := &types.DetailPage{
		Description: strings.TrimSpace(doc.Find(".job_description, .single-job-content").First().Text()),
	}

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		switch {
		case strings.Contains(href, "dev.bg/company/") && !strings.Contains(href, "/jobs"):
			if detail.CompanyProfileURL == "" {
				detail.CompanyProfileURL = href
			}
		case strings.EqualFold(strings.TrimSpace(a.Text()), "website"),
			a.HasClass("company-website"):
			if detail.CompanyWebsite == "" {
				detail.CompanyWebsite = href
			}
		}
	})
	return detail, nil
}

// parseDate handles the relative dates dev.bg shows on cards. Unknown
// formats fall back to now so fresh listings are not discarded.
func (d *DevBG) parseDate(sel *goquery.Selection) time.Time {
	if datetime, ok := sel.Attr("datetime"); ok {
		if t, err := time.Parse("2006-01-02", datetime); err == nil {
			return t
		}
	}

	now := d.now()
	text := strings.ToLower(strings.TrimSpace(sel.Text()))
	switch {
	case text == "" || strings.Contains(text, "днес") || strings.Contains(text, "today"):
		return now
	case strings.Contains(text, "вчера") || strings.Contains(text, "yesterday"):
		return now.AddDate(0, 0, -1)
	}
	if t, err := time.Parse("02.01.2006", text); err == nil {
		return t
	}
	// Day.month only, e.g. "12.05": assume the current year.
	if t, err := time.Parse("02.01", text); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return now
}

// externalIDFromURL derives a stable per-site ID from the last meaningful
// path segment.
func externalIDFromURL(link string) string {
	link = strings.TrimSuffix(link, "/")
	if idx := strings.IndexAny(link, "?#"); idx >= 0 {
		link = link[:idx]
	}
	if idx := strings.LastIndex(link, "/"); idx >= 0 {
		return link[idx+1:]
	}
	return link
}
