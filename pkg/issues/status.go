package issues

import (
	"strings"

	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
)

// NormalizeStatus lowercases and trims a status value and checks it
// against the configured allowed states. Unknown states are accepted
// with a warning rather than rejected: statuses are user vocabulary and
// a strict gate would make externally edited metadata unreadable.
func NormalizeStatus(cfg *projconfig.Config, status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return cfg.DefaultState
	}
	for _, allowed := range cfg.AllowedStates {
		if s == allowed {
			return s
		}
	}
	logging.Warn().
		Str("status", s).
		Strs("allowedStates", cfg.AllowedStates).
		Msg("status not in allowed states, accepting anyway")
	return s
}
