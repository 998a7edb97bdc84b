package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const feedBody = `[
	{"n": "AH", "d": [
		{"n": "Melk Halfvol 1L", "p": 1.95, "s": "1 liter", "l": "producten/melk"},
		{"n": "Brood Wit", "p": 1.29}
	]},
	{"n": "lidl", "d": [
		{"n": "Melkan Melk Halfvol", "p": 1.09}
	]}
]`

func TestNewClient(t *testing.T) {
	client := NewClient("")

	assert.NotNil(t, client)
	assert.Equal(t, DefaultFeedURL, client.feedURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestDownload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "pricelens/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	catalog, err := client.Download(context.Background())
	require.NoError(t, err)

	assert.Len(t, catalog, 2)
	// Store keys are normalized to lowercase
	require.Len(t, catalog["ah"], 2)
	assert.Equal(t, "Melk Halfvol 1L", catalog["ah"][0].Name)
	assert.Equal(t, 1.95, catalog["ah"][0].Price)
	assert.Equal(t, "1 liter", catalog["ah"][0].Size)
	assert.Equal(t, "producten/melk", catalog["ah"][0].Link)
	assert.Len(t, catalog["lidl"], 1)
	assert.Equal(t, 3, catalog.TotalProducts())
}

func TestDownload_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	// Allow immediate retries in tests
	client.rateLimiter.SetLimit(rate.Inf)

	catalog, err := client.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, catalog, 2)
}

func TestDownload_GivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.rateLimiter.SetLimit(rate.Inf)

	_, err := client.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestDownload_EmptyFeedIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.rateLimiter.SetLimit(rate.Inf)

	_, err := client.Download(context.Background())
	require.Error(t, err)
}

func TestDownload_MalformedFeedIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.rateLimiter.SetLimit(rate.Inf)

	_, err := client.Download(context.Background())
	require.Error(t, err)
}
