package httpserver

import (
	"time"

	"go-offline-cache/internal/worker"
)

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Active string    `json:"active,omitempty"`
}

// StatusResponse describes the registry state
type StatusResponse struct {
	Success         bool                    `json:"success"`
	Active          string                  `json:"active,omitempty"`
	Generations     map[string]worker.State `json:"generations"`
	Entries         int                     `json:"entries"`                    // entries in the active generation
	OfflineFallback string                  `json:"offline_fallback,omitempty"` // cache key of the offline document
}

// UpdateRequest asks for a generation install and activation.
// An empty generation reuses the manifest tag.
type UpdateRequest struct {
	Generation string `json:"generation,omitempty"`
}

// UpdateResponse reports the activated generation
type UpdateResponse struct {
	Success    bool         `json:"success"`
	Generation string       `json:"generation,omitempty"`
	State      worker.State `json:"state,omitempty"`
	Error      string       `json:"error,omitempty"`
}
