package server

import (
	"net/http"
	"strings"

	"github.com/centy-io/centy-daemon/internal/server/handlers"
	"github.com/centy-io/centy-daemon/internal/server/middleware"
	"github.com/centy-io/centy-daemon/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.reconciler,
		s.issues,
		s.docs,
		s.broker,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Health endpoints
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/ready", h.HandleReady)

	// Project endpoints
	mux.HandleFunc(prefix+"/projects/init", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		h.HandleInitProject(w, r)
	})
	mux.HandleFunc(prefix+"/projects/status", requireGet(h.HandleProjectStatus))
	mux.HandleFunc(prefix+"/projects/manifest", requireGet(h.HandleGetManifest))
	mux.HandleFunc(prefix+"/projects/config", requireGet(h.HandleGetConfig))

	// Reconciliation endpoints
	mux.HandleFunc(prefix+"/reconcile/plan", requireGet(h.HandleGetPlan))
	mux.HandleFunc(prefix+"/reconcile/execute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		h.HandleExecutePlan(w, r)
	})

	// Issue endpoints
	mux.HandleFunc(prefix+"/issues", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListIssues(w, r)
		case http.MethodPost:
			h.HandleCreateIssue(w, r)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})
	mux.HandleFunc(prefix+"/issues/", func(w http.ResponseWriter, r *http.Request) {
		id := extractPathParam(r.URL.Path, prefix+"/issues/")
		if id == "" {
			response.NotFound(w, "issue ID required", "")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.HandleGetIssue(w, r, id)
		case http.MethodPut:
			h.HandleUpdateIssue(w, r, id)
		case http.MethodDelete:
			h.HandleDeleteIssue(w, r, id)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})

	// Doc endpoints
	mux.HandleFunc(prefix+"/docs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListDocs(w, r)
		case http.MethodPost:
			h.HandleCreateDoc(w, r)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})
	mux.HandleFunc(prefix+"/docs/", func(w http.ResponseWriter, r *http.Request) {
		slug := extractPathParam(r.URL.Path, prefix+"/docs/")
		if slug == "" {
			response.NotFound(w, "doc slug required", "")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.HandleGetDoc(w, r, slug)
		case http.MethodPut:
			h.HandleUpdateDoc(w, r, slug)
		case http.MethodDelete:
			h.HandleDeleteDoc(w, r, slug)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})

	// Real-time endpoints
	mux.HandleFunc(prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc(prefix+"/updates/stream", h.HandleSSE)
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

// extractPathParam extracts the first path segment after a prefix.
func extractPathParam(path, prefix string) string {
	trimmed := strings.TrimPrefix(path, prefix)
	parts := strings.Split(trimmed, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// requireGet rejects non-GET methods before delegating.
func requireGet(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		next(w, r)
	}
}
