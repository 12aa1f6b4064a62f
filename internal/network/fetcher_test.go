package network

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/models"
)

func newFetcher(t *testing.T, upstreamURL string, maxBody int64) *HTTPFetcher {
	t.Helper()
	fetcher, err := NewHTTPFetcher(&config.UpstreamConfig{
		URL:          upstreamURL,
		Timeout:      5 * time.Second,
		MaxBodyBytes: maxBody,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return fetcher
}

func TestNewHTTPFetcher_InvalidURL(t *testing.T) {
	tests := []string{"", "/relative", "::bad"}
	for _, raw := range tests {
		_, err := NewHTTPFetcher(&config.UpstreamConfig{URL: raw}, zaptest.NewLogger(t))
		assert.Error(t, err, raw)
	}
}

func TestHTTPFetcher_SameOrigin(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/css/main.css", r.URL.Path)
		assert.Empty(t, r.Header.Get("Proxy-Authorization"))
		w.Header().Set("Content-Type", "text/css")
		w.Header().Set("Keep-Alive", "timeout=5")
		_, _ = io.WriteString(w, "body{}")
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 0)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/css/main.css",
		Header: http.Header{"Proxy-Authorization": {"secret"}},
		Mode:   models.RequestModeNoCORS,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.ResponseTypeBasic, resp.Type)
	assert.Equal(t, "body{}", string(resp.Body))
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Keep-Alive"))
}

func TestHTTPFetcher_ErrorStatusIsResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 0)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/missing",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.OK())
}

func TestHTTPFetcher_CrossOrigin(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "font")
	}))
	defer cdn.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 0)

	tests := []struct {
		name     string
		mode     models.RequestMode
		expected models.ResponseType
	}{
		{name: "no-cors is opaque", mode: models.RequestModeNoCORS, expected: models.ResponseTypeOpaque},
		{name: "cors is cors", mode: models.RequestModeCORS, expected: models.ResponseTypeCORS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
				Method: http.MethodGet,
				URL:    cdn.URL + "/font.woff2",
				Mode:   tt.mode,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.Type)
		})
	}
}

func TestHTTPFetcher_RedirectOffOrigin(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "elsewhere")
	}))
	defer other.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/landing", http.StatusFound)
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 0)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/moved",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, other.URL+"/landing", resp.URL)
	assert.Equal(t, models.ResponseTypeOpaque, resp.Type)
}

func TestHTTPFetcher_ForwardsBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "name=ada", string(data))
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 0)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodPost,
		URL:    upstream.URL + "/contact",
		Body:   []byte("name=ada"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHTTPFetcher_TransportFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	fetcher := newFetcher(t, url, 0)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    url + "/",
	})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHTTPFetcher_BodyOverLimitIsStreamed(t *testing.T) {
	body := strings.Repeat("x", 64)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 16)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/big",
	})
	require.NoError(t, err)
	defer resp.Close()

	assert.True(t, resp.Streamed())
	assert.Nil(t, resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	streamed, err := io.ReadAll(resp.Stream)
	require.NoError(t, err)
	assert.Equal(t, body, string(streamed))
}

func TestHTTPFetcher_BodyAtLimitIsBuffered(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 16))
	}))
	defer upstream.Close()

	fetcher := newFetcher(t, upstream.URL, 16)
	resp, err := fetcher.Fetch(context.Background(), &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/",
	})
	require.NoError(t, err)

	assert.False(t, resp.Streamed())
	assert.Len(t, resp.Body, 16)
}

func TestHTTPFetcher_ContextCanceled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newFetcher(t, upstream.URL, 0)
	_, err := fetcher.Fetch(ctx, &models.FetchRequest{
		Method: http.MethodGet,
		URL:    upstream.URL + "/",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
