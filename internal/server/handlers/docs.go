package handlers

import (
	"net/http"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/pkg/docs"
)

// HandleCreateDoc handles POST /api/v1/docs.
func (h *Handlers) HandleCreateDoc(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	var req docs.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.docs.Create(r.Context(), path, req)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.DocCreated, map[string]any{
		"projectPath": path,
		"slug":        doc.Slug,
	})
	response.Created(w, doc)
}

// HandleListDocs handles GET /api/v1/docs.
func (h *Handlers) HandleListDocs(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	all, err := h.docs.List(r.Context(), path)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, all)
}

// HandleGetDoc handles GET /api/v1/docs/{slug}.
func (h *Handlers) HandleGetDoc(w http.ResponseWriter, r *http.Request, slug string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.Get(r.Context(), path, slug)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, doc)
}

// updateDocRequest is the body for PUT /api/v1/docs/{slug}. A slug field
// that differs from the addressed slug renames the doc; a nil content
// leaves the content untouched.
type updateDocRequest struct {
	Content *string `json:"content,omitempty"`
	Slug    string  `json:"slug,omitempty"`
}

// HandleUpdateDoc handles PUT /api/v1/docs/{slug}.
func (h *Handlers) HandleUpdateDoc(w http.ResponseWriter, r *http.Request, slug string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	var req updateDocRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var doc *docs.Doc
	var err error
	if req.Slug != "" && req.Slug != slug {
		doc, err = h.docs.Rename(r.Context(), path, slug, req.Slug)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		slug = req.Slug
	}
	if req.Content != nil {
		doc, err = h.docs.Update(r.Context(), path, slug, *req.Content)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
	}
	if doc == nil {
		doc, err = h.docs.Get(r.Context(), path, slug)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
	}

	h.broker.Publish(events.DocUpdated, map[string]any{
		"projectPath": path,
		"slug":        slug,
	})
	response.OK(w, doc)
}

// HandleDeleteDoc handles DELETE /api/v1/docs/{slug}.
func (h *Handlers) HandleDeleteDoc(w http.ResponseWriter, r *http.Request, slug string) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}
	if err := h.docs.Delete(r.Context(), path, slug); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.DocDeleted, map[string]any{
		"projectPath": path,
		"slug":        slug,
	})
	response.NoContent(w)
}
