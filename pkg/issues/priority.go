// Package issues implements issue storage under the managed issues/
// directory: one folder per issue keyed by a stable UUID, holding the
// body document and a metadata sidecar. Display numbers are sequential
// and human-facing; the UUID is the identity.
package issues

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
)

// Priority is a numeric urgency level, 1 being the most urgent. Labels
// are positional against the project's configured level count, so the
// same number can carry different names on different scales.
type Priority int

// Label names used on scales of up to four levels. Wider scales use
// positional P{N} names.
const (
	labelCritical = "critical"
	labelUrgent   = "urgent"
	labelHigh     = "high"
	labelMedium   = "medium"
	labelNormal   = "normal"
	labelLow      = "low"
)

// FromLabel converts a label or numeric string to a priority under the
// given level count. "low" is always the last level, "high" sits below
// "critical" only on scales wide enough to hold both, and "medium" or
// "normal" land on the default level. "P{N}" and plain numbers parse
// positionally.
func FromLabel(s string, levels int) (Priority, error) {
	if levels < 1 {
		levels = 1
	}
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case labelCritical, labelUrgent:
		return 1, nil
	case labelHigh:
		if levels >= 4 {
			return 2, nil
		}
		return 1, nil
	case labelMedium, labelNormal:
		return DefaultFor(levels), nil
	case labelLow:
		return Priority(levels), nil
	}
	if len(trimmed) > 1 && (trimmed[0] == 'P' || trimmed[0] == 'p') {
		if n, err := strconv.Atoi(trimmed[1:]); err == nil {
			return Priority(n), nil
		}
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return Priority(n), nil
	}
	return 0, errors.NewValidationError("priority", s, "unknown priority label")
}

// Label returns the human-facing name for a priority under the given
// number of levels.
func (p Priority) Label(levels int) string {
	switch levels {
	case 0, 1:
		return labelNormal
	case 2:
		if p == 1 {
			return labelHigh
		}
		return labelLow
	case 3:
		switch p {
		case 1:
			return labelHigh
		case 2:
			return labelMedium
		default:
			return labelLow
		}
	case 4:
		switch p {
		case 1:
			return labelCritical
		case 2:
			return labelHigh
		case 3:
			return labelMedium
		default:
			return labelLow
		}
	default:
		return fmt.Sprintf("P%d", int(p))
	}
}

// Validate checks the priority against the configured level count.
func (p Priority) Validate(cfg *projconfig.Config) error {
	levels := cfg.PriorityLevels
	if int(p) < 1 || int(p) > levels {
		return errors.NewValidationError("priority", int(p),
			fmt.Sprintf("must be between 1 and %d", levels))
	}
	return nil
}

// DefaultFor is the middle level, lower-middle on even scales.
func DefaultFor(levels int) Priority {
	if levels < 1 {
		return 1
	}
	return Priority((levels + 1) / 2)
}

// DefaultPriority resolves the priority for a new issue when the caller
// does not supply one: the configured default, else the middle level.
func DefaultPriority(cfg *projconfig.Config) Priority {
	if raw, ok := cfg.Defaults["priority"]; ok {
		if p, err := FromLabel(raw, cfg.PriorityLevels); err == nil && p.Validate(cfg) == nil {
			return p
		}
	}
	return DefaultFor(cfg.PriorityLevels)
}

// PrioritySpec is a caller-supplied priority: either a number or a
// label, resolved against the project's configured level count once the
// config is known. The zero value means unset.
type PrioritySpec struct {
	Number Priority
	Label  string
}

// UnmarshalJSON accepts a JSON number or a label string.
func (ps *PrioritySpec) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		ps.Number = Priority(n)
		ps.Label = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.NewValidationError("priority", string(data), "must be a number or label")
	}
	ps.Number = 0
	ps.Label = strings.TrimSpace(s)
	return nil
}

// MarshalJSON emits the form the caller supplied.
func (ps PrioritySpec) MarshalJSON() ([]byte, error) {
	if ps.Label != "" {
		return json.Marshal(ps.Label)
	}
	return json.Marshal(int(ps.Number))
}

// IsZero reports an unset spec.
func (ps PrioritySpec) IsZero() bool {
	return ps.Number == 0 && ps.Label == ""
}

// Resolve converts the supplied form to a numeric priority for the
// given level count.
func (ps PrioritySpec) Resolve(levels int) (Priority, error) {
	if ps.Label != "" {
		return FromLabel(ps.Label, levels)
	}
	return ps.Number, nil
}

// migratePriority interprets a stored priority value, including label
// strings written by earlier versions. Unrecognized values fall back to
// the default level so old metadata keeps loading.
func migratePriority(raw json.RawMessage, levels int) Priority {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return Priority(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return DefaultFor(levels)
	}
	p, err := FromLabel(s, levels)
	if err != nil {
		return DefaultFor(levels)
	}
	return p
}
