package interceptor

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"go-offline-cache/internal/utils"
)

// Handler exposes the interceptor as an http.Handler in front of origin
type Handler struct {
	interceptor  *Interceptor
	origin       *url.URL
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(interceptor *Interceptor, origin *url.URL, maxBodyBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		interceptor:  interceptor,
		origin:       origin,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// ServeHTTP answers the request through the interceptor.
// A failed fetch without a substitute becomes 502 Bad Gateway.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := utils.RequestFromHTTP(r, h.origin, h.maxBodyBytes)
	if err != nil {
		h.logger.Warn("Rejected request", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	result, err := h.interceptor.Handle(r.Context(), req)
	if err != nil {
		h.logger.Warn("Request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	utils.WriteResponse(w, result.Response, result.Status, r.Method)
}
