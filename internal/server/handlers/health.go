package handlers

import (
	"net/http"
	"time"

	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/pkg/constants"
)

// HandleHealth handles GET /health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "centy-daemon",
		"version": constants.Version,
	})
}

// HandleReady handles GET /api/v1/ready.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":            "ready",
		"uptime_seconds":    int(time.Since(h.startTime).Seconds()),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
