// Package compaction wraps snapshot creation with a coverage report.
// Events are never deleted; compaction only bounds replay cost.
package compaction

import (
	"context"
	"encoding/json"

	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Snapshotter is the subset of the snapshot manager compaction needs.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, spaceID string) (model.Snapshot, error)
}

// Compactor runs the compact operation.
type Compactor struct {
	Store       *store.Store
	Snapshotter Snapshotter
}

// Compact creates a new snapshot for spaceID and reports how many
// events it newly covers (those with sequence in the gap between the
// prior latest snapshot and the new one) plus an advisory bytes-saved
// estimate. Events are never deleted; the estimate is informational
// only.
func (c *Compactor) Compact(ctx context.Context, spaceID string) (model.CompactionReport, error) {
	priorLatest, err := c.Store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return model.CompactionReport{}, err
	}
	var priorSeq int64
	if priorLatest != nil {
		priorSeq = priorLatest.EventSequenceNumber
	}

	snap, err := c.Snapshotter.CreateSnapshot(ctx, spaceID)
	if err != nil {
		return model.CompactionReport{}, err
	}

	covered, err := c.Store.EventsBySpaceAfter(ctx, spaceID, priorSeq)
	if err != nil {
		return model.CompactionReport{}, err
	}
	// EventsBySpaceAfter can include events committed after the new
	// snapshot was cut; only those at or below its sequence are covered.
	var coveredCount int64
	var bytesSaved int64
	for _, e := range covered {
		if e.SequenceNumber > snap.EventSequenceNumber {
			continue
		}
		coveredCount++
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		bytesSaved += int64(len(data))
	}

	return model.CompactionReport{
		SnapshotID:          snap.ID,
		EventsCovered:       coveredCount,
		EstimatedBytesSaved: bytesSaved,
	}, nil
}
