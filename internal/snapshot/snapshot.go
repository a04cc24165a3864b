// Package snapshot implements incremental snapshot creation and the
// events-since-last-snapshot auto-trigger check the write pipeline
// consults after every commit.
package snapshot

import (
	"context"
	"fmt"

	"github.com/rblogdb/rblog/internal/canon"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Manager builds and persists snapshots for the snapshot table.
type Manager struct {
	Store       *store.Store
	Reducer     model.Reducer
	IDGenerator model.IDGenerator
}

// CreateSnapshot folds every event since the space's latest snapshot
// (or all events from sequence 1, if none exists) through the
// configured reducer and persists the result.
func (m *Manager) CreateSnapshot(ctx context.Context, spaceID string) (model.Snapshot, error) {
	latest, err := m.Store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return model.Snapshot{}, err
	}

	var afterSeq int64
	var priorState any
	if latest != nil {
		afterSeq = latest.EventSequenceNumber
		priorState = latest.State
	}

	newEvents, err := m.Store.EventsBySpaceAfter(ctx, spaceID, afterSeq)
	if err != nil {
		return model.Snapshot{}, err
	}

	if len(newEvents) == 0 {
		if latest == nil {
			total, err := m.Store.CountEventsBySpace(ctx, spaceID)
			if err != nil {
				return model.Snapshot{}, err
			}
			if total == 0 {
				return model.Snapshot{}, &model.SnapshotFailed{SpaceID: spaceID, Reason: "no events"}
			}
		}
		return model.Snapshot{}, &model.SnapshotFailed{SpaceID: spaceID, Reason: "already compacted"}
	}

	reducer := m.Reducer
	if reducer == nil {
		reducer = model.DefaultReducer
	}

	state := priorState
	for _, e := range newEvents {
		state = reducer(state, e)
	}

	last := newEvents[len(newEvents)-1]

	hash, err := canon.StateHash(state)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: compute state hash: %w", err)
	}

	snap := model.Snapshot{
		ID:                  m.IDGenerator(),
		SpaceID:             spaceID,
		EventSequenceNumber: last.SequenceNumber,
		Timestamp:           last.Timestamp,
		State:               state,
		Hash:                hash,
	}

	if err := m.Store.InsertSnapshot(ctx, snap); err != nil {
		return model.Snapshot{}, err
	}

	return snap, nil
}

// EventsSinceLastSnapshot counts events in spaceID with sequence
// greater than the latest snapshot's (or every event, if none exists).
func (m *Manager) EventsSinceLastSnapshot(ctx context.Context, spaceID string) (int64, error) {
	latest, err := m.Store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return 0, err
	}

	var afterSeq int64
	if latest != nil {
		afterSeq = latest.EventSequenceNumber
	}

	events, err := m.Store.EventsBySpaceAfter(ctx, spaceID, afterSeq)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}

// ShouldAutoSnapshot reports whether the write pipeline's auto-snapshot
// hook should fire: events_since_last_snapshot(space_id) >= interval.
func (m *Manager) ShouldAutoSnapshot(ctx context.Context, spaceID string, interval int64) (bool, error) {
	if interval <= 0 {
		return false, nil
	}
	n, err := m.EventsSinceLastSnapshot(ctx, spaceID)
	if err != nil {
		return false, err
	}
	return n >= interval, nil
}
