package interceptor

import (
	"net/http"

	"go-offline-cache/internal/models"
)

// Source names where a response comes from
type Source string

const (
	// SourceCache serves the stored entry
	SourceCache Source = "cache"
	// SourceNetwork fetches upstream and may store the response
	SourceNetwork Source = "network"
	// SourceBypass forwards a mutating request untouched
	SourceBypass Source = "bypass"
	// SourcePassThrough forwards a read while no generation is active
	SourcePassThrough Source = "pass"
)

// Lookup reads the active generation
type Lookup func(key string) (*models.CacheEntry, bool)

// Decision is the outcome of Decide
type Decision struct {
	Source Source
	// Entry is set for SourceCache
	Entry *models.CacheEntry
	// FallbackKey is served when the network fails; empty for sub-resources
	FallbackKey string
	// Store reports whether a cacheable network response is written back
	Store bool
}

// Decide chooses how to answer req.
// A nil lookup means no generation is active.
func Decide(req *models.FetchRequest, key string, lookup Lookup, fallbackKey string) Decision {
	if !req.IsRead() {
		return Decision{Source: SourceBypass}
	}
	if lookup == nil {
		return Decision{Source: SourcePassThrough}
	}

	if entry, found := lookup(key); found {
		return Decision{Source: SourceCache, Entry: entry}
	}

	d := Decision{
		Source: SourceNetwork,
		// HEAD responses carry no body
		Store: req.Method == http.MethodGet,
	}
	if req.IsNavigation() {
		d.FallbackKey = fallbackKey
	}
	return d
}

// Cacheable reports whether a network response may be written to the cache
func Cacheable(resp *models.Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusOK &&
		resp.Type == models.ResponseTypeBasic &&
		!resp.Streamed()
}
