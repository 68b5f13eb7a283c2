package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashContent(t *testing.T) {
	a := HashContent("Senior Go Developer at Acme")
	b := HashContent("Senior Go Developer at Acme")
	c := HashContent("Senior Go Developer at Acme ")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme software", NormalizeName("  Acme Software "))
	assert.Equal(t, "acme", NormalizeName("ACME"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestDetectSourceSite(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://dev.bg/company/jobads/acme-senior-go/", SiteDevBG},
		{"https://www.jobs.bg/job/123456", SiteJobsBG},
		{"https://www.linkedin.com/jobs/view/987", SiteLinkedIn},
		{"https://DEV.BG/company/jobads/x/", SiteDevBG},
		{"https://example.com/careers", SiteUnknown},
		{"", SiteUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectSourceSite(tt.url), tt.url)
	}
}

func TestFirstTitleWord(t *testing.T) {
	assert.Equal(t, "Senior", FirstTitleWord("Senior Go Developer"))
	assert.Equal(t, "Developer", FirstTitleWord("Go Developer"))
	assert.Equal(t, "Инженер", FirstTitleWord("QA Инженер"))
	assert.Equal(t, "", FirstTitleWord("Go QA"))
	assert.Equal(t, "", FirstTitleWord(""))
}

func TestEncodeExtraction(t *testing.T) {
	data, err := encodeExtraction(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	e := &Extraction{
		Seniority:    "senior",
		RemotePolicy: "hybrid",
		Requirements: []string{"5+ years Go"},
		ExtractedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err = encodeExtraction(e)
	require.NoError(t, err)

	var decoded Extraction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *e, decoded)
}
