// Package handlers provides HTTP request handlers for the centy daemon
// API.
package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/internal/server/sse"
	ws "github.com/centy-io/centy-daemon/internal/server/websocket"
	"github.com/centy-io/centy-daemon/pkg/docs"
	"github.com/centy-io/centy-daemon/pkg/issues"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	reconciler     *reconcile.Service
	issues         *issues.Service
	docs           *docs.Service
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	reconciler *reconcile.Service,
	issueSvc *issues.Service,
	docSvc *docs.Service,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		reconciler:     reconciler,
		issues:         issueSvc,
		docs:           docSvc,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// projectPath extracts and validates the project path from the request
// query. Every project-scoped endpoint requires it.
func projectPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		response.BadRequest(w, "missing required query parameter: path", "")
		return "", false
	}
	if !filepath.IsAbs(path) {
		response.BadRequest(w, "project path must be absolute", path)
		return "", false
	}
	return filepath.Clean(path), true
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body", err.Error())
		return false
	}
	return true
}
