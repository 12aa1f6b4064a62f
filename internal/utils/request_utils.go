package utils

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go-offline-cache/internal/models"
)

// RequestFromHTTP converts an inbound request into a request against origin
func RequestFromHTTP(r *http.Request, origin *url.URL, maxBodyBytes int64) (*models.FetchRequest, error) {
	if origin == nil {
		return nil, fmt.Errorf("no upstream origin configured")
	}

	target := origin.ResolveReference(&url.URL{
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	})

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		reader := io.Reader(r.Body)
		if maxBodyBytes > 0 {
			reader = io.LimitReader(r.Body, maxBodyBytes+1)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if maxBodyBytes > 0 && int64(len(data)) > maxBodyBytes {
			return nil, fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		}
		body = data
	}

	return &models.FetchRequest{
		Method: r.Method,
		URL:    target.String(),
		Header: StripHopByHop(r.Header),
		Body:   body,
		Mode:   DetectMode(r.Method, r.Header),
	}, nil
}

// DetectMode derives the request mode from Sec-Fetch-Mode
// Without that header a GET accepting text/html counts as a navigation
func DetectMode(method string, header http.Header) models.RequestMode {
	switch mode := models.RequestMode(strings.ToLower(header.Get("Sec-Fetch-Mode"))); mode {
	case models.RequestModeNavigate, models.RequestModeSameOrigin, models.RequestModeNoCORS, models.RequestModeCORS:
		return mode
	}

	if method == http.MethodGet && acceptsHTML(header.Get("Accept")) {
		return models.RequestModeNavigate
	}
	return models.RequestModeNoCORS
}

func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "text/html") {
			return true
		}
	}
	return false
}
