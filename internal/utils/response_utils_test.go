package utils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"go-offline-cache/internal/models"
)

func TestStripHopByHop(t *testing.T) {
	tests := []struct {
		name        string
		header      http.Header
		expected    http.Header
		description string
	}{
		{
			name: "standard hop-by-hop fields",
			header: http.Header{
				"Connection":        {"keep-alive"},
				"Keep-Alive":        {"timeout=5"},
				"Transfer-Encoding": {"chunked"},
				"Content-Type":      {"text/css"},
			},
			expected:    http.Header{"Content-Type": {"text/css"}},
			description: "should drop fixed hop-by-hop fields",
		},
		{
			name: "fields named by Connection",
			header: http.Header{
				"Connection":    {"X-Trace, close"},
				"X-Trace":       {"abc"},
				"Cache-Control": {"no-cache"},
			},
			expected:    http.Header{"Cache-Control": {"no-cache"}},
			description: "should drop fields listed in the Connection header",
		},
		{
			name:        "nil header",
			header:      nil,
			expected:    http.Header{},
			description: "should return an empty header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripHopByHop(tt.header)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("StripHopByHop() = %v, expected %v - %s", result, tt.expected, tt.description)
			}
		})
	}
}

func TestStripHopByHop_DoesNotMutateInput(t *testing.T) {
	header := http.Header{"Connection": {"close"}, "Content-Type": {"text/html"}}

	StripHopByHop(header)

	if header.Get("Connection") != "close" {
		t.Errorf("StripHopByHop() mutated its input")
	}
}

func TestWriteResponse(t *testing.T) {
	resp := &models.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":   {"text/html"},
			"Content-Length": {"999"},
			"Connection":     {"close"},
		},
		Body: []byte("<h1>offline</h1>"),
	}

	tests := []struct {
		name         string
		method       string
		expectedBody string
	}{
		{name: "GET writes body", method: http.MethodGet, expectedBody: "<h1>offline</h1>"},
		{name: "HEAD omits body", method: http.MethodHead, expectedBody: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			WriteResponse(rec, resp, models.CacheStatusOffline, tt.method)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, expected %d", rec.Code, http.StatusOK)
			}
			if got := rec.Header().Get(CacheStatusHeader); got != "OFFLINE" {
				t.Errorf("%s = %q, expected OFFLINE", CacheStatusHeader, got)
			}
			if got := rec.Header().Get("Connection"); got != "" {
				t.Errorf("Connection = %q, expected it stripped", got)
			}
			if got := rec.Header().Get("Content-Length"); got == "999" {
				t.Errorf("stale Content-Length was forwarded")
			}
			if rec.Body.String() != tt.expectedBody {
				t.Errorf("body = %q, expected %q", rec.Body.String(), tt.expectedBody)
			}
		})
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWriteResponse_Streamed(t *testing.T) {
	stream := &closeRecorder{Reader: strings.NewReader("<h1>gallery</h1>")}
	resp := &models.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Stream:     stream,
	}

	rec := httptest.NewRecorder()
	WriteResponse(rec, resp, models.CacheStatusMiss, http.MethodGet)

	if rec.Body.String() != "<h1>gallery</h1>" {
		t.Errorf("body = %q, expected the streamed body", rec.Body.String())
	}
	if !stream.closed {
		t.Errorf("stream was not closed")
	}
}
