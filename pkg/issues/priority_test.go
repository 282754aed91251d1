package issues

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centy-io/centy-daemon/pkg/projconfig"
)

func TestFromLabelThreeLevels(t *testing.T) {
	cases := map[string]Priority{
		"critical": 1,
		"urgent":   1,
		"high":     1,
		"HIGH":     1,
		"medium":   2,
		"normal":   2,
		"low":      3,
		"P2":       2,
		"p3":       3,
		"2":        2,
	}
	for raw, want := range cases {
		got, err := FromLabel(raw, 3)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestFromLabelIsLevelAware(t *testing.T) {
	// "high" shares level 1 with "critical" on narrow scales and only
	// moves to level 2 once the scale has room for both.
	for _, levels := range []int{1, 2, 3} {
		got, err := FromLabel("high", levels)
		require.NoError(t, err)
		assert.Equal(t, Priority(1), got, "levels=%d", levels)
	}
	got, err := FromLabel("high", 4)
	require.NoError(t, err)
	assert.Equal(t, Priority(2), got)

	// "low" is always the last level.
	for _, levels := range []int{1, 2, 4, 5} {
		got, err := FromLabel("low", levels)
		require.NoError(t, err)
		assert.Equal(t, Priority(levels), got, "levels=%d", levels)
	}

	// "medium" and "normal" land on the default level.
	got, err = FromLabel("medium", 5)
	require.NoError(t, err)
	assert.Equal(t, Priority(3), got)
	got, err = FromLabel("normal", 4)
	require.NoError(t, err)
	assert.Equal(t, Priority(2), got)
}

func TestFromLabelRejectsGarbage(t *testing.T) {
	_, err := FromLabel("urgent-ish", 3)
	assert.Error(t, err)
	_, err = FromLabel("Px", 3)
	assert.Error(t, err)
}

func TestPriorityLabels(t *testing.T) {
	assert.Equal(t, "normal", Priority(1).Label(1))

	assert.Equal(t, "high", Priority(1).Label(2))
	assert.Equal(t, "low", Priority(2).Label(2))

	assert.Equal(t, "high", Priority(1).Label(3))
	assert.Equal(t, "medium", Priority(2).Label(3))
	assert.Equal(t, "low", Priority(3).Label(3))

	assert.Equal(t, "critical", Priority(1).Label(4))
	assert.Equal(t, "high", Priority(2).Label(4))
	assert.Equal(t, "medium", Priority(3).Label(4))
	assert.Equal(t, "low", Priority(4).Label(4))

	assert.Equal(t, "P1", Priority(1).Label(5))
	assert.Equal(t, "P4", Priority(4).Label(5))
}

func TestLabelRoundTrips(t *testing.T) {
	// On a four-level scale "medium" names level 3 but resolves to the
	// default level 2, so only the other scales round-trip exactly.
	for _, levels := range []int{2, 3, 6} {
		for p := 1; p <= levels; p++ {
			got, err := FromLabel(Priority(p).Label(levels), levels)
			require.NoError(t, err)
			assert.Equal(t, Priority(p), got, "levels=%d p=%d", levels, p)
		}
	}
}

func TestPrioritySpecUnmarshal(t *testing.T) {
	var ps PrioritySpec
	require.NoError(t, json.Unmarshal([]byte(`2`), &ps))
	assert.Equal(t, PrioritySpec{Number: 2}, ps)

	require.NoError(t, json.Unmarshal([]byte(`"high"`), &ps))
	assert.Equal(t, PrioritySpec{Label: "high"}, ps)

	assert.Error(t, json.Unmarshal([]byte(`{}`), &ps))
}

func TestPrioritySpecResolve(t *testing.T) {
	p, err := PrioritySpec{Label: "low"}.Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, Priority(4), p)

	p, err = PrioritySpec{Number: 2}.Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, Priority(2), p)

	_, err = PrioritySpec{Label: "nope"}.Resolve(4)
	assert.Error(t, err)

	assert.True(t, PrioritySpec{}.IsZero())
	assert.False(t, PrioritySpec{Number: 1}.IsZero())
}

func TestMigratePriority(t *testing.T) {
	assert.Equal(t, Priority(3), migratePriority(json.RawMessage(`3`), 3))
	assert.Equal(t, Priority(1), migratePriority(json.RawMessage(`"critical"`), 3))
	assert.Equal(t, Priority(3), migratePriority(json.RawMessage(`"low"`), 3))
	// Unknown values fall back to the default level.
	assert.Equal(t, Priority(2), migratePriority(json.RawMessage(`"whenever"`), 3))
	assert.Equal(t, Priority(2), migratePriority(json.RawMessage(`[]`), 3))
}

func TestPriorityValidate(t *testing.T) {
	cfg := projconfig.Default()
	assert.NoError(t, Priority(1).Validate(cfg))
	assert.NoError(t, Priority(3).Validate(cfg))
	assert.Error(t, Priority(0).Validate(cfg))
	assert.Error(t, Priority(4).Validate(cfg))
}

func TestDefaultPriority(t *testing.T) {
	cfg := projconfig.Default()
	assert.Equal(t, Priority(2), DefaultPriority(cfg))

	cfg.Defaults["priority"] = "high"
	assert.Equal(t, Priority(1), DefaultPriority(cfg))

	// An out-of-range configured default falls back to the middle.
	cfg.Defaults["priority"] = "9"
	assert.Equal(t, Priority(2), DefaultPriority(cfg))

	cfg.PriorityLevels = 5
	cfg.Defaults = map[string]string{}
	assert.Equal(t, Priority(3), DefaultPriority(cfg))

	assert.Equal(t, Priority(1), DefaultFor(0))
	assert.Equal(t, Priority(2), DefaultFor(4))
}

func TestNormalizeStatus(t *testing.T) {
	cfg := projconfig.Default()
	assert.Equal(t, "open", NormalizeStatus(cfg, ""))
	assert.Equal(t, "closed", NormalizeStatus(cfg, "  Closed "))
	// Unknown states are accepted, not rejected.
	assert.Equal(t, "wontfix", NormalizeStatus(cfg, "wontfix"))
}
