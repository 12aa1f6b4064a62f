package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/manifest"
	"go-offline-cache/internal/worker"
)

// AdminPrefix is the path prefix of the admin endpoints
const AdminPrefix = "/_offline"

// Server represents the offline cache HTTP server
type Server struct {
	registry *worker.Registry
	manifest *manifest.Manifest
	proxy    http.Handler
	config   *config.ServerConfig
	logger   *zap.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new offline cache HTTP server.
// Requests outside the admin prefix are answered by proxy.
func NewServer(registry *worker.Registry, m *manifest.Manifest, proxy http.Handler, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		registry: registry,
		manifest: m,
		proxy:    proxy,
		config:   cfg,
		logger:   logger,
	}
}

// Start starts the HTTP server on a TCP address
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(listener)
}

// Serve serves HTTP on listener until Stop is called
func (s *Server) Serve(listener net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.logger.Info("Starting offline cache HTTP server", zap.String("address", listener.Addr().String()))
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping offline cache HTTP server")
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.createRouter()
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	admin := router.PathPrefix(AdminPrefix).Subrouter()
	admin.HandleFunc("/health", s.handleHealth).Methods("GET")
	admin.HandleFunc("/status", s.handleStatus).Methods("GET")
	admin.HandleFunc("/update", s.handleUpdate).Methods("POST")
	// Keep the admin namespace away from the proxy
	admin.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	admin.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorResponse(w, "Not found", http.StatusNotFound)
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Everything else is a page request
	router.PathPrefix("/").Handler(s.proxy)

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := ""
	if gen := s.registry.Active(); gen != nil {
		active = gen.Tag()
	}

	s.writeResponse(w, &HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC(),
		Active: active,
	})
}

// parseRequest parses an optional JSON request body
func (s *Server) parseRequest(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
