// Package storageacct implements storage accounting and the pure
// pressure-level classifier built on its reports.
package storageacct

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Accountant computes storage usage reports.
type Accountant struct {
	Store *store.Store
}

// GetStorageUsage iterates every event and snapshot once, estimating
// each record's byte cost as its JSON-encoded length, and returns the
// total plus a per-space breakdown sorted by space_id.
func (a *Accountant) GetStorageUsage(ctx context.Context) (model.StorageReport, error) {
	events, err := a.Store.AllEvents(ctx)
	if err != nil {
		return model.StorageReport{}, err
	}

	snapshots, err := a.Store.AllSnapshots(ctx)
	if err != nil {
		return model.StorageReport{}, err
	}

	report := model.StorageReport{EventCount: int64(len(events)), SnapshotCount: int64(len(snapshots))}

	perSpace := make(map[string]*model.SpaceUsage)
	var order []string

	for _, e := range events {
		n := estimateBytes(e)
		report.EstimatedBytes += n

		usage, ok := perSpace[e.SpaceID]
		if !ok {
			usage = &model.SpaceUsage{SpaceID: e.SpaceID}
			perSpace[e.SpaceID] = usage
			order = append(order, e.SpaceID)
		}
		usage.EstimatedBytes += n
		usage.EventCount++

		if report.MinTimestamp == "" || e.Timestamp < report.MinTimestamp {
			report.MinTimestamp = e.Timestamp
		}
		if report.MaxTimestamp == "" || e.Timestamp > report.MaxTimestamp {
			report.MaxTimestamp = e.Timestamp
		}
	}

	for _, s := range snapshots {
		report.EstimatedBytes += estimateBytes(s)
	}

	sort.Strings(order)
	report.PerSpace = make([]model.SpaceUsage, 0, len(order))
	for _, spaceID := range order {
		report.PerSpace = append(report.PerSpace, *perSpace[spaceID])
	}

	return report, nil
}

// estimateBytes returns the JSON-encoded length of v as a storage-cost
// estimate. This is advisory accounting, not an exact on-disk byte
// count.
func estimateBytes(v any) int64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
