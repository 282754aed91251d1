// Package events provides a unified event system for real-time project
// updates.
//
// A broker fans project lifecycle events out to the registered transport
// subscribers (WebSocket, SSE) through one pipeline, so the services that
// publish events never know which transports are attached.
package events

import "time"

// EventType represents the type of project event.
type EventType string

// Event types for project changes.
const (
	// Project lifecycle events.
	ProjectInitialized EventType = "project.initialized"

	// Reconciliation events.
	ReconcilePlanned  EventType = "reconcile.planned"
	ReconcileExecuted EventType = "reconcile.executed"
	DriftDetected     EventType = "drift.detected"

	// Issue events.
	IssueCreated EventType = "issue.created"
	IssueUpdated EventType = "issue.updated"
	IssueDeleted EventType = "issue.deleted"

	// Doc events.
	DocCreated EventType = "doc.created"
	DocUpdated EventType = "doc.updated"
	DocDeleted EventType = "doc.deleted"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event represents a project event with type, timestamp, and data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
