package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Go Developer</h1></body></html>"))
	}))
	defer server.Close()

	client := NewClient(nil)
	result, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Go Developer</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestFetch_InvalidURL_NotRetryable(t *testing.T) {
	client := NewClient(nil)
	_, err := client.Fetch(context.Background(), "not-a-valid-url")
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
	assert.False(t, fetchErr.Retryable)
	assert.False(t, IsRetryable(err))
}

func TestFetch_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
		{"throttled", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(nil)
			result, err := client.Fetch(context.Background(), server.URL)
			require.Error(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(&Options{UserAgent: "JobRadar-Test/1.0"})
	_, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "JobRadar-Test/1.0", gotAgent)
}

func TestIsRetryable_NonFetchError(t *testing.T) {
	assert.True(t, IsRetryable(context.DeadlineExceeded))
}

func TestExtractMainText(t *testing.T) {
	html := `<html><body>
		<nav>Navigation</nav>
		<div class="job-description">
			<p>We are hiring a Go developer.</p>
			<p>Remote friendly.</p>
		</div>
		<footer>Footer junk</footer>
	</body></html>`

	text, err := ExtractMainText(html, JobPostingSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "We are hiring a Go developer.")
	assert.Contains(t, text, "Remote friendly.")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer junk")
}

func TestExtractMainText_NoiseSelectors(t *testing.T) {
	html := `<html><body>
		<main>
			<p>Job content</p>
			<div class="similar-jobs">Other jobs</div>
		</main>
	</body></html>`

	text, err := ExtractMainText(html, SiteDetailSelectors("dev.bg"), SiteNoiseSelectors("dev.bg")...)
	require.NoError(t, err)
	assert.Contains(t, text, "Job content")
	assert.NotContains(t, text, "Other jobs")
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	html := `<html><body><p>plain page</p></body></html>`
	text, err := ExtractMainText(html, []string{".does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, "plain page", text)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser(""))
	assert.True(t, ShouldUseBrowser("   short   "))
	long := make([]byte, MinContentLength)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ShouldUseBrowser(string(long)))
}

func TestSiteDetailSelectors_UnknownSiteFallsBack(t *testing.T) {
	assert.Equal(t, JobPostingSelectors(), SiteDetailSelectors("unknown-board"))
	assert.NotEmpty(t, SiteDetailSelectors("jobs.bg"))
	assert.Nil(t, SiteNoiseSelectors("unknown-board"))
}
