package archive

import (
	"context"
	"time"

	"github.com/rblogdb/rblog/internal/chain"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Exporter runs export_archive: chain-verify, serialize, compress,
// frame.
type Exporter struct {
	Store *store.Store
}

// ExportArchive loads spaceID's events with timestamp < beforeDate,
// verifies their chain links are intact, and assembles a .rblogs
// archive. Returns IntegrityViolation if a link is broken before any
// bytes are produced.
func (x *Exporter) ExportArchive(ctx context.Context, spaceID, beforeDate string) ([]byte, error) {
	if _, err := time.Parse(time.RFC3339, beforeDate); err != nil {
		return nil, &model.InvalidQuery{Field: "beforeDate", Reason: "must be an ISO-8601 instant"}
	}

	all, err := x.Store.EventsBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	selected := make([]model.Event, 0, len(all))
	for _, e := range all {
		if e.Timestamp < beforeDate {
			selected = append(selected, e)
		}
	}

	if i := chain.VerifyLinks(selected); i != chain.Intact {
		return nil, violationAt(selected, i)
	}

	records := make([]record, len(selected))
	for i, e := range selected {
		records[i] = record{
			ID:             e.ID,
			Type:           string(e.Type),
			SpaceID:        e.SpaceID,
			Timestamp:      e.Timestamp,
			SequenceNumber: e.SequenceNumber,
			Hash:           e.Hash,
			PreviousHash:   e.PreviousHash,
			Version:        e.Version,
			Payload:        e.Payload,
		}
	}

	return assemble(records)
}

// violationAt builds the model.IntegrityViolation for a broken link at
// index i: expected is the prior event's hash ("null" if the break is
// at the genesis position and there is no prior), actual is the
// current event's own previous_hash ("unknown" if absent).
func violationAt(events []model.Event, i int) error {
	e := events[i]
	actual := "unknown"
	if e.PreviousHash != nil {
		actual = *e.PreviousHash
	}

	expected := "null"
	if i > 0 {
		expected = events[i-1].Hash
	}

	return &model.IntegrityViolation{EventID: e.ID, Expected: expected, Actual: actual}
}
