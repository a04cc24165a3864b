// Package reconstruct implements nearest-snapshot-plus-replay state
// reconstruction, optionally cut off at a caller-supplied timestamp.
package reconstruct

import (
	"context"
	"time"

	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Reconstructor rebuilds reducer state from snapshots and replay.
type Reconstructor struct {
	Store   *store.Store
	Reducer model.Reducer
}

// ReconstructState folds a space's events (starting from the nearest
// qualifying snapshot, or genesis if none) through the reducer, up to
// and including atTimestamp if supplied, or through the full stream
// otherwise.
func (r *Reconstructor) ReconstructState(ctx context.Context, spaceID string, atTimestamp *string) (any, error) {
	if atTimestamp != nil {
		if _, err := time.Parse(time.RFC3339, *atTimestamp); err != nil {
			return nil, &model.InvalidQuery{Field: "atTimestamp", Reason: "must be an ISO-8601 instant"}
		}
	}

	earliest, err := r.earliestEvent(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return nil, &model.InvalidQuery{Field: "spaceId", Reason: "space has no events"}
	}

	if atTimestamp != nil && *atTimestamp < earliest.Timestamp {
		return nil, &model.InvalidQuery{Field: "atTimestamp", Reason: "predates events"}
	}

	var snap *model.Snapshot
	if atTimestamp == nil {
		snap, err = r.Store.LatestSnapshot(ctx, spaceID)
	} else {
		snap, err = r.Store.SnapshotAtOrBefore(ctx, spaceID, *atTimestamp)
	}
	if err != nil {
		return nil, err
	}

	var afterSeq int64
	var state any
	if snap != nil {
		afterSeq = snap.EventSequenceNumber
		state = snap.State
	}

	events, err := r.Store.EventsBySpaceAfter(ctx, spaceID, afterSeq)
	if err != nil {
		return nil, err
	}

	reducer := r.Reducer
	if reducer == nil {
		reducer = model.DefaultReducer
	}

	for _, e := range events {
		if atTimestamp != nil && e.Timestamp > *atTimestamp {
			continue
		}
		state = reducer(state, e)
	}

	return state, nil
}

func (r *Reconstructor) earliestEvent(ctx context.Context, spaceID string) (*model.Event, error) {
	events, err := r.Store.EventsBySpaceChunk(ctx, spaceID, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}
