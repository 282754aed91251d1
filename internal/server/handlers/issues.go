package handlers

import (
	"net/http"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/pkg/issues"
)

// HandleCreateIssue handles POST /api/v1/issues.
func (h *Handlers) HandleCreateIssue(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	var req issues.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issue, err := h.issues.Create(r.Context(), path, req)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.IssueCreated, map[string]any{
		"projectPath": path,
		"issue":       issue.Metadata,
	})
	response.Created(w, issue)
}

// HandleListIssues handles GET /api/v1/issues. Optional status and
// priority query parameters filter the listing.
func (h *Handlers) HandleListIssues(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}

	filter := issues.ListFilter{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
	}
	all, err := h.issues.List(r.Context(), path, filter)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, all)
}

// HandleGetIssue handles GET /api/v1/issues/{id}.
func (h *Handlers) HandleGetIssue(w http.ResponseWriter, r *http.Request, id string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	issue, err := h.issues.Get(r.Context(), path, id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, issue)
}

// HandleUpdateIssue handles PUT /api/v1/issues/{id}.
func (h *Handlers) HandleUpdateIssue(w http.ResponseWriter, r *http.Request, id string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	var req issues.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issue, err := h.issues.Update(r.Context(), path, id, req)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.IssueUpdated, map[string]any{
		"projectPath": path,
		"issue":       issue.Metadata,
	})
	response.OK(w, issue)
}

// HandleDeleteIssue handles DELETE /api/v1/issues/{id}.
func (h *Handlers) HandleDeleteIssue(w http.ResponseWriter, r *http.Request, id string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	if err := h.issues.Delete(r.Context(), path, id); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.IssueDeleted, map[string]any{
		"projectPath": path,
		"issueId":     id,
	})
	response.NoContent(w)
}
