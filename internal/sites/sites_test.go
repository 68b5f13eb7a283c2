package sites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devBGListing = `<html><body>
<div class="job-list-item">
	<a class="overlay-link" href="https://dev.bg/company/jobads/orbit-go-developer/"></a>
	<h6 class="job-title">Senior Go Developer</h6>
	<span class="company-name">Orbit Systems</span>
	<span class="badge-city">Sofia</span>
	<div class="tech-stack">
		<span class="badge">Go</span>
		<span class="badge">PostgreSQL</span>
	</div>
	<span class="date">днес</span>
</div>
<div class="job-list-item">
	<a class="overlay-link" href="https://dev.bg/company/jobads/nimbus-devops/"></a>
	<h6 class="job-title">DevOps Engineer</h6>
	<span class="company-name">Nimbus</span>
	<span class="badge-city">Plovdiv</span>
	<span class="date">вчера</span>
</div>
<div class="job-list-item">
	<h6 class="job-title">Broken card without link</h6>
</div>
</body></html>`

func TestDevBG_ParseListing(t *testing.T) {
	parser := NewDevBG("golang")
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	parser.now = func() time.Time { return fixed }

	postings, err := parser.ParseListing(devBGListing)
	require.NoError(t, err)
	require.Len(t, postings, 2)

	first := postings[0]
	assert.Equal(t, "Senior Go Developer", first.Title)
	assert.Equal(t, "Orbit Systems", first.CompanyName)
	assert.Equal(t, "Sofia", first.Location)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, first.Technologies)
	assert.Equal(t, "dev.bg", first.SourceSite)
	assert.Equal(t, "orbit-go-developer", first.ExternalID)
	assert.Equal(t, fixed, first.PostedAt)

	assert.Equal(t, fixed.AddDate(0, 0, -1), postings[1].PostedAt)
}

func TestDevBG_ParseDetail(t *testing.T) {
	html := `<html><body>
	<div class="job_description">We build telemetry pipelines in Go.</div>
	<a href="https://dev.bg/company/orbit-systems/">Orbit Systems</a>
	<a class="company-website" href="https://orbit.bg">Website</a>
	</body></html>`

	detail, err := NewDevBG("").ParseDetail(html)
	require.NoError(t, err)
	assert.Contains(t, detail.Description, "telemetry pipelines")
	assert.Equal(t, "https://dev.bg/company/orbit-systems/", detail.CompanyProfileURL)
	assert.Equal(t, "https://orbit.bg", detail.CompanyWebsite)
}

const jobsBGListing = `<html><body>
<div class="job-wrap">
	<a class="black-link-b" href="/job/7654321">Go Backend Developer</a>
	<div class="card-logo-info">Orbit Systems</div>
	<div class="card-info secondary-text">Sofia; 4000 - 6000 BGN</div>
	<div class="card-date">вчера</div>
</div>
</body></html>`

func TestJobsBG_ParseListing(t *testing.T) {
	parser := NewJobsBG("golang")
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	parser.now = func() time.Time { return fixed }

	postings, err := parser.ParseListing(jobsBGListing)
	require.NoError(t, err)
	require.Len(t, postings, 1)

	p := postings[0]
	assert.Equal(t, "Go Backend Developer", p.Title)
	assert.Equal(t, "https://www.jobs.bg/job/7654321", p.SourceURL)
	assert.Equal(t, "7654321", p.ExternalID)
	assert.Equal(t, "Sofia", p.Location)
	require.NotNil(t, p.Salary)
	assert.Equal(t, 4000, p.Salary.Min)
	assert.Equal(t, 6000, p.Salary.Max)
	assert.Equal(t, "BGN", p.Salary.Currency)
	assert.Equal(t, fixed.AddDate(0, 0, -1), p.PostedAt)
}

func TestParseSalary(t *testing.T) {
	assert.Nil(t, parseSalary("negotiable"))
	assert.Nil(t, parseSalary("4000 BGN"))
	assert.Nil(t, parseSalary("6000 - 4000 BGN x"))

	salary := parseSalary("3000 - 4500 BGN")
	require.NotNil(t, salary)
	assert.Equal(t, 3000, salary.Min)
	assert.Equal(t, 4500, salary.Max)
}

func TestExternalIDFromURL(t *testing.T) {
	assert.Equal(t, "orbit-go-developer", externalIDFromURL("https://dev.bg/company/jobads/orbit-go-developer/"))
	assert.Equal(t, "7654321", externalIDFromURL("https://www.jobs.bg/job/7654321?ref=search"))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(NewDevBG(""), NewJobsBG(""))

	assert.Equal(t, []string{"dev.bg", "jobs.bg"}, registry.Sites())

	parser, err := registry.Get("dev.bg")
	require.NoError(t, err)
	assert.Equal(t, "dev.bg", parser.Site())

	_, err = registry.Get("unknown")
	assert.ErrorContains(t, err, "no parser registered")
}
