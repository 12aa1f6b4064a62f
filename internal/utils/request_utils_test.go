package utils

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go-offline-cache/internal/models"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		header   http.Header
		expected models.RequestMode
	}{
		{
			name:     "sec-fetch-mode navigate",
			method:   http.MethodGet,
			header:   http.Header{"Sec-Fetch-Mode": {"navigate"}},
			expected: models.RequestModeNavigate,
		},
		{
			name:     "sec-fetch-mode wins over accept",
			method:   http.MethodGet,
			header:   http.Header{"Sec-Fetch-Mode": {"no-cors"}, "Accept": {"text/html"}},
			expected: models.RequestModeNoCORS,
		},
		{
			name:     "accept html without sec-fetch-mode",
			method:   http.MethodGet,
			header:   http.Header{"Accept": {"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"}},
			expected: models.RequestModeNavigate,
		},
		{
			name:     "accept html on HEAD is not navigation",
			method:   http.MethodHead,
			header:   http.Header{"Accept": {"text/html"}},
			expected: models.RequestModeNoCORS,
		},
		{
			name:     "stylesheet",
			method:   http.MethodGet,
			header:   http.Header{"Accept": {"text/css,*/*;q=0.1"}},
			expected: models.RequestModeNoCORS,
		},
		{
			name:     "unknown sec-fetch-mode falls back to accept",
			method:   http.MethodGet,
			header:   http.Header{"Sec-Fetch-Mode": {"websocket"}, "Accept": {"text/html"}},
			expected: models.RequestModeNavigate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(tt.method, tt.header); got != tt.expected {
				t.Errorf("DetectMode() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestRequestFromHTTP(t *testing.T) {
	origin, _ := url.Parse("https://portfolio.example")

	r := httptest.NewRequest(http.MethodGet, "http://proxy.local/css/main.css?v=2", nil)
	r.Header.Set("Accept", "text/css")
	r.Header.Set("Connection", "keep-alive")

	req, err := RequestFromHTTP(r, origin, 1024)
	if err != nil {
		t.Fatalf("RequestFromHTTP() error = %v", err)
	}

	if req.URL != "https://portfolio.example/css/main.css?v=2" {
		t.Errorf("URL = %q", req.URL)
	}
	if req.Method != http.MethodGet {
		t.Errorf("Method = %q", req.Method)
	}
	if req.Header.Get("Connection") != "" {
		t.Errorf("hop-by-hop header was kept")
	}
	if req.Mode != models.RequestModeNoCORS {
		t.Errorf("Mode = %q", req.Mode)
	}
	if len(req.Body) != 0 {
		t.Errorf("Body = %q, expected empty", req.Body)
	}
}

func TestRequestFromHTTP_Body(t *testing.T) {
	origin, _ := url.Parse("https://portfolio.example")

	r := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=ada"))
	req, err := RequestFromHTTP(r, origin, 1024)
	if err != nil {
		t.Fatalf("RequestFromHTTP() error = %v", err)
	}
	if string(req.Body) != "name=ada" {
		t.Errorf("Body = %q", req.Body)
	}
	if req.IsRead() {
		t.Errorf("POST reported as read request")
	}
}

func TestRequestFromHTTP_BodyTooLarge(t *testing.T) {
	origin, _ := url.Parse("https://portfolio.example")

	r := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("0123456789"))
	if _, err := RequestFromHTTP(r, origin, 4); err == nil {
		t.Errorf("RequestFromHTTP() expected error for oversized body")
	}
}

func TestRequestFromHTTP_NoOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := RequestFromHTTP(r, nil, 0); err == nil {
		t.Errorf("RequestFromHTTP() expected error without origin")
	}
}
