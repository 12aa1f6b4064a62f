package models

import (
	"net/http"
	"time"
)

// CacheEntry is a captured response stored under its request URL.
// Entries are immutable once stored; re-caching overwrites the whole entry.
type CacheEntry struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
	StoredAt   int64       `json:"stored_at"`
}

// NewCacheEntry captures resp under url
func NewCacheEntry(url string, resp *Response) *CacheEntry {
	return &CacheEntry{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       append([]byte(nil), resp.Body...),
		StoredAt:   time.Now().Unix(),
	}
}

// Response converts the entry back into a response served from cache
func (e *CacheEntry) Response() *Response {
	return &Response{
		URL:        e.URL,
		StatusCode: e.StatusCode,
		Header:     e.Header.Clone(),
		Body:       e.Body,
		Type:       ResponseTypeBasic,
	}
}

// Size returns the approximate number of bytes held by the entry
func (e *CacheEntry) Size() int {
	size := len(e.URL) + len(e.Body)
	for k, vv := range e.Header {
		size += len(k)
		for _, v := range vv {
			size += len(v)
		}
	}
	return size
}
