package models

import (
	"io"
	"net/http"
)

// RequestMode mirrors the fetch mode of the page request
type RequestMode string

const (
	RequestModeNavigate   RequestMode = "navigate"
	RequestModeSameOrigin RequestMode = "same-origin"
	RequestModeNoCORS     RequestMode = "no-cors"
	RequestModeCORS       RequestMode = "cors"
)

// FetchRequest is an outgoing page request as seen by the interceptor
type FetchRequest struct {
	Method string
	URL    string // absolute URL
	Header http.Header
	Body   []byte
	Mode   RequestMode
}

// IsRead reports whether the request uses a non-mutating method
func (r *FetchRequest) IsRead() bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// IsNavigation reports whether the request loads a top-level document
func (r *FetchRequest) IsNavigation() bool {
	return r.Mode == RequestModeNavigate
}

// ResponseType classifies a network response by origin visibility
type ResponseType string

const (
	// ResponseTypeBasic is a same-origin response
	ResponseTypeBasic ResponseType = "basic"
	// ResponseTypeCORS is a cross-origin response readable by the page
	ResponseTypeCORS ResponseType = "cors"
	// ResponseTypeOpaque is a cross-origin response that cannot be inspected
	ResponseTypeOpaque ResponseType = "opaque"
)

// Response is a response returned by the network or rebuilt from cache
type Response struct {
	URL        string // final URL after redirects
	StatusCode int
	Header     http.Header
	Body       []byte
	// Stream replaces Body when the upstream body is too large to buffer.
	// Streamed responses are passed through once and never stored.
	Stream io.ReadCloser
	Type   ResponseType
}

// Streamed reports whether the body is carried by Stream
func (r *Response) Streamed() bool {
	return r.Stream != nil
}

// Close releases the stream of a streamed response
func (r *Response) Close() error {
	if r.Stream == nil {
		return nil
	}
	return r.Stream.Close()
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
