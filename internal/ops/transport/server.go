// Package transport exposes the operations service's Protocol Layer over
// four wire transports that share one envelope format: a unary request/
// response endpoint, an NDJSON streaming endpoint, a server-sent-events
// streaming endpoint, and a persistent multiplexing WebSocket endpoint.
package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opsmesh/opsmesh/internal/ops/catalog"
	"github.com/opsmesh/opsmesh/internal/ops/config"
	"github.com/opsmesh/opsmesh/internal/ops/service"
)

// Server wires the Protocol Layer service onto chi's router.
type Server struct {
	svc    *service.Service
	cfg    config.Config
	log    *slog.Logger
	router *Router

	// Version is reported by the health endpoint. Callers that embed this
	// into a build via -ldflags should set it after NewServer returns.
	Version string
}

// NewServer builds a Server ready to be handed to http.ListenAndServe.
func NewServer(svc *service.Service, cfg config.Config, log *slog.Logger) *Server {
	return &Server{
		svc:     svc,
		cfg:     cfg,
		log:     log,
		router:  NewRouter(svc, log),
		Version: "dev",
	}
}

// Handler returns the fully configured chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/mcp", func(r chi.Router) {
		r.Get("/health", s.handleMCPHealth)
		r.Get("/operations", s.handleOperations)
		r.Post("/request", s.handleUnary)
		r.Post("/stream", s.handleNDJSONStream)
		r.Post("/sse-stream", s.handleSSEStream)
	})

	r.Get("/ws/mcp", s.router.HandleWS)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMCPHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": "opsmesh-ops",
		"version": s.Version,
	})
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Operations)
}

// securityHeadersMiddleware sets the same baseline headers the hub's API
// server sets on every response.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
