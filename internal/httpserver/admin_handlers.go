package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"go-offline-cache/internal/worker"
)

// handleStatus reports the active generation and every known generation state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.registry.Status()

	resp := &StatusResponse{
		Success:     true,
		Active:      status.Active,
		Generations: status.Generations,
	}

	if gen := s.registry.Active(); gen != nil {
		keys, err := gen.Cache().Keys()
		if err != nil {
			s.logger.Warn("Failed to count active generation entries", zap.Error(err))
		}
		resp.Entries = len(keys)
		resp.OfflineFallback = gen.FallbackKey()
	}

	s.writeResponse(w, resp)
}

// handleUpdate installs and activates a generation from the manifest
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := s.parseRequest(r, &req); err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	m := s.manifest
	if req.Generation != "" {
		var err error
		if m, err = s.manifest.WithGeneration(req.Generation); err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// A dropped client must not abort the install
	ctx := context.WithoutCancel(r.Context())

	gen, err := s.registry.Update(ctx, m)
	if err != nil {
		s.logger.Warn("Update failed", zap.String("generation", m.Generation), zap.Error(err))
		s.writeErrorResponse(w, fmt.Sprintf("Update failed: %v", err), updateErrorStatus(err))
		return
	}

	s.writeResponse(w, &UpdateResponse{
		Success:    true,
		Generation: gen.Tag(),
		State:      s.registry.State(gen.Tag()),
	})
}

func updateErrorStatus(err error) int {
	switch {
	case errors.Is(err, worker.ErrAlreadyActive), errors.Is(err, worker.ErrInstallInProgress):
		return http.StatusConflict
	case errors.Is(err, worker.ErrInstallFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
