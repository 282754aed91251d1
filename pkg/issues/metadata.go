package issues

import (
	"github.com/agentstation/utc"
)

// Metadata is the sidecar document stored next to each issue body as
// metadata.json. The UUID is the issue's identity; the display number is
// a human-facing sequence assigned at creation and never reused within a
// project's lifetime while issues exist.
type Metadata struct {
	ID            string            `json:"id"`
	DisplayNumber int               `json:"displayNumber"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Status        string            `json:"status"`
	Priority      Priority          `json:"priority"`
	CustomFields  map[string]string `json:"customFields,omitempty"`
	CreatedAt     utc.Time          `json:"createdAt"`
	UpdatedAt     utc.Time          `json:"updatedAt"`
}

// Issue is metadata plus the body document content.
type Issue struct {
	Metadata
	Body string `json:"body"`
}
