package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/medassist-ai/internal/backend"
	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/proxy"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// ProxyConfig holds the forwarding server's dependencies.
type ProxyConfig struct {
	Logger             *logging.Logger
	Forwarder          *proxy.Forwarder
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// NewProxy serves /health and /metrics locally and relays everything under
// the forwarder's prefix.
func NewProxy(cfg *ProxyConfig) http.Handler {
	r := newBase(cfg.Logger, cfg.CORSAllowedOrigins)

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Group(func(relay chi.Router) {
		relay.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		prefix := cfg.Forwarder.Prefix()
		relay.Handle(prefix, cfg.Forwarder)
		relay.Handle(prefix+"/*", cfg.Forwarder)
	})
	return r
}

// BackendConfig holds the reference backend's dependencies.
type BackendConfig struct {
	Logger             *logging.Logger
	Handler            *backend.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	// JWTSecret protects /report and /search when set.
	JWTSecret string
}

// NewBackend exposes the assistant API at the root. Mount it behind the
// proxy, or point the client at it with an /api-less base URL.
func NewBackend(cfg *BackendConfig) http.Handler {
	r := newBase(cfg.Logger, cfg.CORSAllowedOrigins)

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/test", cfg.Handler.Test)
	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		public.Post("/register", cfg.Handler.Register)
		public.Post("/login", cfg.Handler.Login)
	})
	r.Group(func(protected chi.Router) {
		if cfg.JWTSecret != "" {
			protected.Use(httpmiddleware.UserJWT(cfg.JWTSecret))
		}
		protected.Post("/report", cfg.Handler.Report)
		protected.Post("/search", cfg.Handler.Search)
	})
	return r
}

func newBase(logger *logging.Logger, origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(origins) > 0 {
		r.Use(httpmiddleware.CORS(origins))
	}
	if logger != nil {
		r.Use(httpmiddleware.RequestLogger(logger))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
