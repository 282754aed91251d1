package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/response"
)

// initRequest is the body for POST /api/v1/projects/init.
type initRequest struct {
	Path string `json:"path"`
}

// HandleInitProject handles POST /api/v1/projects/init. Initializing an
// already-initialized project succeeds without changing it.
func (h *Handlers) HandleInitProject(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" || !filepath.IsAbs(req.Path) {
		response.BadRequest(w, "path must be an absolute project path", req.Path)
		return
	}
	path := filepath.Clean(req.Path)

	alreadyInitialized := h.reconciler.IsInitialized(path)
	report, err := h.reconciler.Init(r.Context(), path)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	if !alreadyInitialized {
		h.broker.Publish(events.ProjectInitialized, map[string]any{
			"projectPath": path,
		})
	}
	response.Created(w, map[string]any{
		"projectPath":        path,
		"alreadyInitialized": alreadyInitialized,
		"report":             report,
	})
}

// HandleProjectStatus handles GET /api/v1/projects/status.
func (h *Handlers) HandleProjectStatus(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	response.OK(w, map[string]any{
		"projectPath": path,
		"initialized": h.reconciler.IsInitialized(path),
	})
}

// HandleGetManifest handles GET /api/v1/projects/manifest.
func (h *Handlers) HandleGetManifest(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	m, err := h.reconciler.Manifest(path)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, m)
}

// HandleGetConfig handles GET /api/v1/projects/config.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	cfg, err := h.reconciler.Config(path)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, cfg)
}
