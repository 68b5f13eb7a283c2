package fetch

// Selector tables mapping source sites to the CSS selectors that locate
// their job and company content.

// JobPostingSelectors returns selectors that work across most job boards.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// CompanyPageSelectors returns selectors for company pages (about, values,
// culture).
func CompanyPageSelectors() []string {
	return []string{
		"main",
		"article",
		".about-content",
		".values-content",
		".culture-content",
		".content",
		"#content",
	}
}

// SiteDetailSelectors returns detail-page selectors tuned per source site,
// falling back to the generic job posting selectors for unknown sites.
func SiteDetailSelectors(site string) []string {
	switch site {
	case "dev.bg":
		return []string{
			".job_description",
			".single-job-content",
			"article",
			"main",
		}
	case "jobs.bg":
		return []string{
			".jobreview",
			".job-view",
			"#description",
			"main",
		}
	case "linkedin":
		return []string{
			".description__text",
			".show-more-less-html__markup",
			"main",
		}
	default:
		return JobPostingSelectors()
	}
}

// SiteNoiseSelectors returns extra noise elements to strip per site.
func SiteNoiseSelectors(site string) []string {
	switch site {
	case "dev.bg":
		return []string{".similar-jobs", ".apply-box"}
	case "jobs.bg":
		return []string{".banner", ".right-column"}
	case "linkedin":
		return []string{".top-card-layout__cta-container", ".similar-jobs"}
	default:
		return nil
	}
}
