package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// Ensure HTTPFetcher implements interfaces.Fetcher
var _ interfaces.Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher forwards requests to the upstream origin
type HTTPFetcher struct {
	client       *http.Client
	origin       *url.URL
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHTTPFetcher creates a fetcher for the configured upstream
func NewHTTPFetcher(cfg *config.UpstreamConfig, logger *zap.Logger) (*HTTPFetcher, error) {
	origin, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", cfg.URL)
	}

	return &HTTPFetcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		origin:       origin,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}, nil
}

// Origin returns the upstream origin
func (f *HTTPFetcher) Origin() *url.URL {
	return f.origin
}

// streamBody replays the buffered prefix before the rest of the upstream body
type streamBody struct {
	io.Reader
	io.Closer
}

// Fetch issues req and returns the response.
// Any status is a response; only transport failures are errors.
// A body over the buffer limit is returned as a stream the caller must close.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *models.FetchRequest) (*models.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header = utils.StripHopByHop(req.Header)
	// Let the transport negotiate compression and decode transparently
	httpReq.Header.Del("Accept-Encoding")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		metrics.RecordNetworkError("transport")
		return nil, fmt.Errorf("upstream request %s %s failed: %w", req.Method, req.URL, err)
	}

	data, complete, err := f.readBody(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		metrics.RecordNetworkError("body")
		return nil, fmt.Errorf("failed to read upstream body for %s: %w", req.URL, err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	out := &models.Response{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Header:     utils.StripHopByHop(resp.Header),
		Type:       f.classify(finalURL, req.Mode),
	}

	if complete {
		_ = resp.Body.Close()
		out.Body = data
	} else {
		out.Stream = streamBody{Reader: io.MultiReader(bytes.NewReader(data), resp.Body), Closer: resp.Body}
		f.logger.Debug("Upstream body over buffer limit, streaming",
			zap.String("url", req.URL),
			zap.Int64("limit", f.maxBodyBytes))
	}

	f.logger.Debug("Upstream response",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Bool("streamed", !complete))

	return out, nil
}

// readBody buffers up to the configured limit. complete is false when the
// body goes on past it; the bytes read so far are returned either way.
func (f *HTTPFetcher) readBody(r io.Reader) (data []byte, complete bool, err error) {
	if f.maxBodyBytes <= 0 {
		data, err = io.ReadAll(r)
		return data, err == nil, err
	}

	data, err = io.ReadAll(io.LimitReader(r, f.maxBodyBytes+1))
	if err != nil {
		return nil, false, err
	}
	return data, int64(len(data)) <= f.maxBodyBytes, nil
}

// classify reports basic for same-origin responses
// Cross-origin responses are cors for cors-mode requests and opaque otherwise
func (f *HTTPFetcher) classify(finalURL string, mode models.RequestMode) models.ResponseType {
	parsed, err := url.Parse(finalURL)
	if err == nil && sameOrigin(parsed, f.origin) {
		return models.ResponseTypeBasic
	}
	if mode == models.RequestModeCORS {
		return models.ResponseTypeCORS
	}
	return models.ResponseTypeOpaque
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
