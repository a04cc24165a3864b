// Package query implements the three paginated read operations
// (query_by_space, query_by_type, query_by_time) sharing one cursor and
// ordering contract.
package query

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Engine holds nothing but a store handle; the pagination contract is
// pure function-of-input logic on top of it.
type Engine struct {
	Store *store.Store
}

// QueryBySpace runs query_by_space: an index-bounded scan so the
// database itself does the cursor filtering, since
// (space_id, sequence_number) is already the store's compound index.
func (e *Engine) QueryBySpace(ctx context.Context, spaceID string, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	norm := opts.Normalize()

	var cursor *model.Cursor
	if norm.Cursor != "" {
		c, err := decodeCursor(norm.Cursor)
		if err != nil {
			return model.PaginatedResult[model.Event]{}, err
		}
		cursor = &c
	}

	fetchLimit := norm.Limit + 1

	var events []model.Event
	var err error
	if norm.Order == model.OrderDesc {
		beforeSeq := int64(math.MaxInt64)
		if cursor != nil {
			beforeSeq = cursor.SequenceNumber
		}
		events, err = e.Store.EventsBySpaceChunkDesc(ctx, spaceID, beforeSeq, fetchLimit)
	} else {
		afterSeq := int64(0)
		if cursor != nil {
			afterSeq = cursor.SequenceNumber
		}
		events, err = e.Store.EventsBySpaceChunk(ctx, spaceID, afterSeq, fetchLimit)
	}
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	total, err := e.Store.CountEventsBySpace(ctx, spaceID)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	return paginate(events, norm.Limit, total), nil
}

// QueryByType runs query_by_type: the store returns every event of the
// type, ordered by (sequence_number, id) ascending; cursor and order
// are applied in memory.
func (e *Engine) QueryByType(ctx context.Context, eventType model.EventType, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	norm := opts.Normalize()

	events, err := e.Store.EventsByType(ctx, eventType)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	total, err := e.Store.CountEventsByType(ctx, eventType)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	page, err := filterAndPage(events, norm)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}
	return paginate(page, norm.Limit, total), nil
}

// QueryByTime runs query_by_time: validates both bounds as ISO-8601
// instants, scans the timestamp index over [from, to), then applies
// cursor and ordering in memory exactly as QueryByType does.
func (e *Engine) QueryByTime(ctx context.Context, from, to string, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	if _, err := time.Parse(time.RFC3339, from); err != nil {
		return model.PaginatedResult[model.Event]{}, &model.InvalidQuery{Field: "from", Reason: "must be an ISO-8601 instant"}
	}
	if _, err := time.Parse(time.RFC3339, to); err != nil {
		return model.PaginatedResult[model.Event]{}, &model.InvalidQuery{Field: "to", Reason: "must be an ISO-8601 instant"}
	}

	norm := opts.Normalize()

	events, err := e.Store.EventsByTimeRange(ctx, from, to)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	total, err := e.Store.CountEventsByTimeRange(ctx, from, to)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}

	page, err := filterAndPage(events, norm)
	if err != nil {
		return model.PaginatedResult[model.Event]{}, err
	}
	return paginate(page, norm.Limit, total), nil
}

// filterAndPage applies the shared in-memory cursor filter and
// ordering to a fully materialized, (sequence_number, id)-ascending
// event slice, then truncates to limit+1 so paginate can detect
// overflow.
func filterAndPage(events []model.Event, norm model.NormalizedOptions) ([]model.Event, error) {
	var cursor *model.Cursor
	if norm.Cursor != "" {
		c, err := decodeCursor(norm.Cursor)
		if err != nil {
			return nil, err
		}
		cursor = &c
	}

	ordered := make([]model.Event, len(events))
	copy(ordered, events)
	if norm.Order == model.OrderDesc {
		sort.SliceStable(ordered, func(i, j int) bool { return after(ordered[i], ordered[j]) })
	}

	filtered := ordered[:0:0]
	for _, e := range ordered {
		if cursor == nil {
			filtered = append(filtered, e)
			continue
		}
		if norm.Order == model.OrderDesc {
			if before(e, *cursor) {
				filtered = append(filtered, e)
			}
		} else {
			if afterCursor(e, *cursor) {
				filtered = append(filtered, e)
			}
		}
	}

	fetchLimit := norm.Limit + 1
	if len(filtered) > fetchLimit {
		filtered = filtered[:fetchLimit]
	}
	return filtered, nil
}

// paginate drops the overflow row (if present) and derives next_cursor
// from the last retained row: fetching limit+1 is how the engine knows
// whether another page exists without a second count query.
func paginate(events []model.Event, limit int, total int64) model.PaginatedResult[model.Event] {
	result := model.PaginatedResult[model.Event]{Total: total}

	if len(events) > limit {
		result.Items = events[:limit]
		last := result.Items[len(result.Items)-1]
		result.NextCursor = encodeCursor(model.Cursor{SequenceNumber: last.SequenceNumber, ID: last.ID})
	} else {
		result.Items = events
	}
	if result.Items == nil {
		result.Items = []model.Event{}
	}
	return result
}

func after(a, b model.Event) bool {
	if a.SequenceNumber != b.SequenceNumber {
		return a.SequenceNumber > b.SequenceNumber
	}
	return a.ID > b.ID
}

func afterCursor(e model.Event, c model.Cursor) bool {
	if e.SequenceNumber != c.SequenceNumber {
		return e.SequenceNumber > c.SequenceNumber
	}
	return e.ID > c.ID
}

func before(e model.Event, c model.Cursor) bool {
	if e.SequenceNumber != c.SequenceNumber {
		return e.SequenceNumber < c.SequenceNumber
	}
	return e.ID < c.ID
}
