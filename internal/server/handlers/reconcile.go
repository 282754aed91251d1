package handlers

import (
	"net/http"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

// HandleGetPlan handles GET /api/v1/reconcile/plan: computes the
// current reconciliation plan without mutating anything.
func (h *Handlers) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(w, r)
	if !ok {
		return
	}

	plan, err := h.reconciler.Plan(r.Context(), path)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.ReconcilePlanned, map[string]any{
		"projectPath": path,
		"operations":  len(plan.Operations),
		"actionable":  plan.ActionableCount(),
	})
	response.OK(w, plan)
}

// executeRequest is the body for POST /api/v1/reconcile/execute. The
// plan is the one previously returned by the plan endpoint; decisions
// map operation paths to caller choices.
type executeRequest struct {
	Plan      *reconcile.Plan     `json:"plan"`
	Decisions reconcile.Decisions `json:"decisions,omitempty"`
}

// HandleExecutePlan handles POST /api/v1/reconcile/execute.
func (h *Handlers) HandleExecutePlan(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Plan == nil {
		response.BadRequest(w, "plan is required", "")
		return
	}

	report, err := h.reconciler.Execute(r.Context(), req.Plan, req.Decisions)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.ReconcileExecuted, map[string]any{
		"projectPath": req.Plan.ProjectPath,
		"applied":     report.Applied,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
	})
	response.OK(w, report)
}
