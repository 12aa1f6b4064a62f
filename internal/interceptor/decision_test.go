package interceptor

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-offline-cache/internal/models"
)

func TestDecide(t *testing.T) {
	const key = "https://portfolio.example/about"
	const fallback = "https://portfolio.example/offline.html"

	stored := &models.CacheEntry{URL: key, StatusCode: http.StatusOK, Body: []byte("about")}
	hit := func(k string) (*models.CacheEntry, bool) { return stored, k == key }
	miss := func(string) (*models.CacheEntry, bool) { return nil, false }

	tests := []struct {
		name     string
		req      *models.FetchRequest
		lookup   Lookup
		expected Decision
	}{
		{
			name:     "hit",
			req:      &models.FetchRequest{Method: http.MethodGet, URL: key, Mode: models.RequestModeNavigate},
			lookup:   hit,
			expected: Decision{Source: SourceCache, Entry: stored},
		},
		{
			name:     "HEAD hit",
			req:      &models.FetchRequest{Method: http.MethodHead, URL: key},
			lookup:   hit,
			expected: Decision{Source: SourceCache, Entry: stored},
		},
		{
			name:     "navigation miss carries fallback",
			req:      &models.FetchRequest{Method: http.MethodGet, URL: key, Mode: models.RequestModeNavigate},
			lookup:   miss,
			expected: Decision{Source: SourceNetwork, FallbackKey: fallback, Store: true},
		},
		{
			name:     "sub-resource miss has no fallback",
			req:      &models.FetchRequest{Method: http.MethodGet, URL: key, Mode: models.RequestModeNoCORS},
			lookup:   miss,
			expected: Decision{Source: SourceNetwork, Store: true},
		},
		{
			name:     "HEAD miss is not stored",
			req:      &models.FetchRequest{Method: http.MethodHead, URL: key},
			lookup:   miss,
			expected: Decision{Source: SourceNetwork},
		},
		{
			name:     "POST bypasses even when cached",
			req:      &models.FetchRequest{Method: http.MethodPost, URL: key, Mode: models.RequestModeNavigate},
			lookup:   hit,
			expected: Decision{Source: SourceBypass},
		},
		{
			name:     "DELETE bypasses",
			req:      &models.FetchRequest{Method: http.MethodDelete, URL: key},
			lookup:   hit,
			expected: Decision{Source: SourceBypass},
		},
		{
			name:     "no active generation passes through",
			req:      &models.FetchRequest{Method: http.MethodGet, URL: key, Mode: models.RequestModeNavigate},
			lookup:   nil,
			expected: Decision{Source: SourcePassThrough},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.req, key, tt.lookup, fallback))
		})
	}
}

func TestDecide_MutatingRequestNeverLooksUp(t *testing.T) {
	called := false
	lookup := func(string) (*models.CacheEntry, bool) {
		called = true
		return nil, false
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		Decide(&models.FetchRequest{Method: method, URL: "https://portfolio.example/"}, "k", lookup, "f")
	}

	assert.False(t, called)
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		name     string
		resp     *models.Response
		expected bool
	}{
		{name: "nil", resp: nil, expected: false},
		{name: "200 basic", resp: &models.Response{StatusCode: 200, Type: models.ResponseTypeBasic}, expected: true},
		{name: "200 opaque", resp: &models.Response{StatusCode: 200, Type: models.ResponseTypeOpaque}, expected: false},
		{name: "200 cors", resp: &models.Response{StatusCode: 200, Type: models.ResponseTypeCORS}, expected: false},
		{name: "204 basic", resp: &models.Response{StatusCode: 204, Type: models.ResponseTypeBasic}, expected: false},
		{name: "404 basic", resp: &models.Response{StatusCode: 404, Type: models.ResponseTypeBasic}, expected: false},
		{name: "500 basic", resp: &models.Response{StatusCode: 500, Type: models.ResponseTypeBasic}, expected: false},
		{name: "200 basic streamed", resp: &models.Response{StatusCode: 200, Type: models.ResponseTypeBasic, Stream: io.NopCloser(strings.NewReader("x"))}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Cacheable(tt.resp))
		})
	}
}
