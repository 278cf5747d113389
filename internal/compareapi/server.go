// Package compareapi implements the comparison service: the upload,
// compare and export operations the workflow UI drives through its
// comparator client. Sessions are opaque uuid tokens over an in-memory
// store; this service is the single source of truth for mapping inference
// and reconciliation math.
package compareapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orderrecon/orderrecon/internal/config"
)

// Server is the comparison service HTTP server.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	sessions *sessionStore
}

// NewServer builds the service with its middleware and routes configured.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: newSessionStore(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/compare", s.handleCompare)
		r.Get("/export/{sessionID}", s.handleExport)
	})
}

// Start begins listening on the configured backend address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Backend.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	slog.Info("comparison service starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeDetail writes the {detail: ...} failure shape clients render. detail
// may be a string or any structured payload.
func writeDetail(w http.ResponseWriter, status int, detail interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"detail": detail}); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// exportFilename names the downloaded workbook after its session.
func exportFilename(sessionID string) string {
	return "reconciliation_" + sessionID + ".xlsx"
}
