package canon

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortedKeys(t *testing.T) {
	out, err := Marshal(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestMarshalNull(t *testing.T) {
	out, err := Marshal(nil)
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}

func TestMarshalNullField(t *testing.T) {
	out, err := Marshal(map[string]any{"previous_hash": nil})
	require.NoError(t, err)
	require.Equal(t, `{"previous_hash":null}`, string(out))
}

func TestMarshalFloat(t *testing.T) {
	out, err := Marshal(map[string]any{"n": 1.5})
	require.NoError(t, err)
	require.Equal(t, `{"n":1.5}`, string(out))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	out, err := Marshal("<b>&</b>")
	require.NoError(t, err)
	require.Equal(t, `"<b>&</b>"`, string(out))
}

func TestMarshalNestedArray(t *testing.T) {
	out, err := Marshal(map[string]any{
		"items": []any{1, "two", nil, map[string]any{"z": 1, "a": 2}},
	})
	require.NoError(t, err)
	require.Equal(t, `{"items":[1,"two",null,{"a":2,"z":1}]}`, string(out))
}

func TestMarshalKeyOrderIsCodePointNotUTF16(t *testing.T) {
	// U+FFFF sorts before U+10000 in code-point order; under RFC 8785's
	// UTF-16-code-unit order it would not, since U+10000 encodes as a
	// surrogate pair starting at 0xD800, below 0xFFFF.
	out, err := Marshal(map[string]any{"\U00010000": 1, "￿": 2})
	require.NoError(t, err)
	require.Equal(t, `{"`+"￿"+`":2,"`+"\U00010000"+`":1}`, string(out))
}

func TestMarshalGolden(t *testing.T) {
	g := goldie.New(t)
	out, err := Marshal(map[string]any{
		"id":              "evt-1",
		"payload":         map[string]any{"n": 2.0, "text": "héllo"},
		"previous_hash":   nil,
		"sequence_number": int64(1),
	})
	require.NoError(t, err)
	g.Assert(t, "canonical_event", out)
}

func TestEventHashDeterministic(t *testing.T) {
	in := EventHashInput{
		ID:             "evt-1",
		Type:           "state_changed",
		SpaceID:        "s",
		Timestamp:      "2026-02-14T00:00:00Z",
		SequenceNumber: 1,
		PreviousHash:   nil,
		Version:        1,
		Payload:        map[string]any{"n": float64(1)},
	}
	h1, err := EventHash(in)
	require.NoError(t, err)
	h2, err := EventHash(in)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}

func TestEventHashChangesWithPreviousHash(t *testing.T) {
	base := EventHashInput{
		ID: "evt-2", Type: "state_changed", SpaceID: "s",
		Timestamp: "2026-02-14T00:00:01Z", SequenceNumber: 2,
		Version: 1, Payload: map[string]any{"n": float64(2)},
	}
	withoutPrev, err := EventHash(base)
	require.NoError(t, err)

	prev := "abc123"
	base.PreviousHash = &prev
	withPrev, err := EventHash(base)
	require.NoError(t, err)

	require.NotEqual(t, withoutPrev, withPrev)
}

func TestStateHash(t *testing.T) {
	h, err := StateHash(map[string]any{"count": float64(3)})
	require.NoError(t, err)
	require.Len(t, h, 64)
}
