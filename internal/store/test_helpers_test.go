package store

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rblogdb/rblog/model"
)

// createTestStore creates a new on-disk SQLite store under t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testEvent builds a minimal, valid event for a given space and sequence
// number, chaining previousHash in directly so callers can construct a
// short hand-built chain without going through the write pipeline.
func testEvent(spaceID string, seq int64, previousHash *string) model.Event {
	s := strconv.FormatInt(seq, 10)
	return model.Event{
		ID:             "evt-" + spaceID + "-" + s,
		Type:           model.EventStateChanged,
		SpaceID:        spaceID,
		Timestamp:      "2026-01-01T00:00:00Z",
		SequenceNumber: seq,
		Hash:           "hash-" + spaceID + "-" + s,
		PreviousHash:   previousHash,
		Version:        1,
		Payload:        map[string]any{"n": seq},
	}
}

func testSnapshot(spaceID string, eventSeq int64) model.Snapshot {
	s := strconv.FormatInt(eventSeq, 10)
	return model.Snapshot{
		ID:                  "snap-" + spaceID + "-" + s,
		SpaceID:             spaceID,
		EventSequenceNumber: eventSeq,
		Timestamp:           "2026-01-01T00:00:00Z",
		State:               map[string]any{"n": eventSeq},
		Hash:                "snaphash-" + spaceID + "-" + s,
	}
}
