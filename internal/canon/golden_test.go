package canon

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TestMarshal_EventHashInputGolden pins the exact canonical-JSON byte
// layout EventHash feeds into SHA-256: sorted keys, compact
// separators, no trailing newline. A change here changes every
// event's hash, so it's worth a fixture rather than an inline
// string literal that's easy to eyeball-approve when wrong.
func TestMarshal_EventHashInputGolden(t *testing.T) {
	obj := map[string]any{
		"id":              "evt-1",
		"type":            "state_changed",
		"space_id":        "s",
		"timestamp":       "2026-02-14T00:00:00Z",
		"sequence_number": int64(1),
		"previous_hash":   nil,
		"version":         1,
		"payload":         map[string]any{"status": "active", "count": 3},
	}

	data, err := Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "event_hash_input", data)
}
