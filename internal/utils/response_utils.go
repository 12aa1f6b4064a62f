package utils

import (
	"io"
	"net/http"
	"strings"

	"go-offline-cache/internal/models"
)

// CacheStatusHeader reports how the interceptor answered a request
const CacheStatusHeader = "X-Cache-Status"

var hopByHopHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive",
	"Proxy-Authenticate", "Proxy-Authorization", "TE",
	"Trailer", "Transfer-Encoding", "Upgrade",
}

// StripHopByHop returns a copy of header without hop-by-hop fields
func StripHopByHop(header http.Header) http.Header {
	headerClone := header.Clone()
	if headerClone == nil {
		headerClone = http.Header{}
	}

	for _, k := range hopByHopHeaders {
		headerClone.Del(k)
	}
	// Also remove fields named by the Connection header
	if conn := header.Get("Connection"); conn != "" {
		for _, token := range strings.Split(conn, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				headerClone.Del(token)
			}
		}
	}
	return headerClone
}

// WriteResponse writes resp to w, tagging it with the cache status.
// The body is omitted for HEAD requests. A streamed body is copied and closed.
func WriteResponse(w http.ResponseWriter, resp *models.Response, status models.CacheStatus, method string) {
	defer resp.Close()

	header := w.Header()
	for k, values := range StripHopByHop(resp.Header) {
		header[k] = append([]string(nil), values...)
	}
	// Body length may differ from the upstream's
	header.Del("Content-Length")
	header.Set(CacheStatusHeader, string(status))

	w.WriteHeader(resp.StatusCode)
	if method == http.MethodHead {
		return
	}
	if resp.Streamed() {
		_, _ = io.Copy(w, resp.Stream)
		return
	}
	_, _ = w.Write(resp.Body)
}
