package cache

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go-offline-cache/internal/interfaces"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct {
	origin *url.URL
}

// NewKeyBuilder creates a new KeyBuilder resolving relative URLs against origin
func NewKeyBuilder(origin *url.URL) interfaces.KeyBuilder {
	return &KeyBuilderImpl{origin: origin}
}

// Build creates a cache key for a single request URL.
// The key is the absolute URL without fragment; scheme and host are lowercased.
func (kb *KeyBuilderImpl) Build(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("url cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	if !parsed.IsAbs() {
		if kb.origin == nil {
			return "", fmt.Errorf("relative url %q without origin", rawURL)
		}
		parsed = kb.origin.ResolveReference(parsed)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

// BuildBatch creates cache keys for multiple request URLs
func (kb *KeyBuilderImpl) BuildBatch(rawURLs []string) ([]string, error) {
	if len(rawURLs) == 0 {
		return nil, errors.New("urls slice cannot be empty")
	}

	keys := make([]string, len(rawURLs))

	for i, rawURL := range rawURLs {
		key, err := kb.Build(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build key for url %d: %w", i, err)
		}
		keys[i] = key
	}

	return keys, nil
}
