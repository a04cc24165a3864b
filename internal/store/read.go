package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rblogdb/rblog/model"
)

// TailEvent returns the event with the maximum sequence_number for
// spaceID via the (space_id, sequence_number) index, or (nil, nil) if
// the space has no events. Used by the chain linker.
func (s *Store) TailEvent(ctx context.Context, spaceID string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE space_id = ?
		ORDER BY sequence_number DESC
		LIMIT 1
	`, spaceID)

	e, err := scanEventRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, databaseError("tail_event", err)
	}
	return &e, nil
}

// EventsBySpace returns every event in spaceID ordered by
// sequence_number ascending, scanning the (space_id, sequence_number)
// index. Used wherever a full per-space replay is needed.
func (s *Store) EventsBySpace(ctx context.Context, spaceID string) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE space_id = ?
		ORDER BY sequence_number ASC
	`, spaceID)
}

// EventsBySpaceAfter returns events in spaceID with sequence_number >
// afterSeq, ordered by sequence_number ascending. Used by the
// incremental snapshot fold and post-snapshot replay.
func (s *Store) EventsBySpaceAfter(ctx context.Context, spaceID string, afterSeq int64) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE space_id = ? AND sequence_number > ?
		ORDER BY sequence_number ASC
	`, spaceID, afterSeq)
}

// EventsBySpaceChunk returns up to limit events in spaceID with
// sequence_number > afterSeq, ordered ascending. Used by the chunked
// integrity walk.
func (s *Store) EventsBySpaceChunk(ctx context.Context, spaceID string, afterSeq int64, limit int) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE space_id = ? AND sequence_number > ?
		ORDER BY sequence_number ASC
		LIMIT ?
	`, spaceID, afterSeq, limit)
}

// EventsBySpaceChunkDesc returns up to limit events in spaceID with
// sequence_number < beforeSeq, ordered descending. The counterpart to
// EventsBySpaceChunk for descending-order cursor pagination.
func (s *Store) EventsBySpaceChunkDesc(ctx context.Context, spaceID string, beforeSeq int64, limit int) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE space_id = ? AND sequence_number < ?
		ORDER BY sequence_number DESC
		LIMIT ?
	`, spaceID, beforeSeq, limit)
}

// CountEventsBySpace returns the total number of events in spaceID.
func (s *Store) CountEventsBySpace(ctx context.Context, spaceID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE space_id = ?`, spaceID).Scan(&n)
	if err != nil {
		return 0, databaseError("count_events_by_space", err)
	}
	return n, nil
}

// EventsByType returns every event of the given type across all
// spaces, ordered by sequence_number ascending then id. The query
// engine applies cursor and ordering on top of this in memory.
func (s *Store) EventsByType(ctx context.Context, eventType model.EventType) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE type = ?
		ORDER BY sequence_number ASC, id ASC
	`, string(eventType))
}

// CountEventsByType returns the total number of events with the given
// type across all spaces.
func (s *Store) CountEventsByType(ctx context.Context, eventType model.EventType) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE type = ?`, string(eventType)).Scan(&n)
	if err != nil {
		return 0, databaseError("count_events_by_type", err)
	}
	return n, nil
}

// EventsByTimeRange returns every event with from <= timestamp < to,
// scanning the timestamp index, ordered by sequence_number then id.
func (s *Store) EventsByTimeRange(ctx context.Context, from, to string) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY sequence_number ASC, id ASC
	`, from, to)
}

// CountEventsByTimeRange returns the count of events with
// from <= timestamp < to.
func (s *Store) CountEventsByTimeRange(ctx context.Context, from, to string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE timestamp >= ? AND timestamp < ?
	`, from, to).Scan(&n)
	if err != nil {
		return 0, databaseError("count_events_by_time_range", err)
	}
	return n, nil
}

// AllEvents performs a total-iteration scan of every event, ordered by
// space_id then sequence_number. Used by storage accounting.
func (s *Store) AllEvents(ctx context.Context) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events
		ORDER BY space_id ASC, sequence_number ASC
	`)
}

// ListSpaceIDs returns every distinct space_id with at least one event,
// in lexicographic order.
func (s *Store) ListSpaceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT space_id FROM events ORDER BY space_id ASC`)
	if err != nil {
		return nil, databaseError("list_space_ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, databaseError("list_space_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list_space_ids", err)
	}
	return ids, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, databaseError("query_events", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, databaseError("scan_event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("iterate_events", err)
	}
	return events, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows, letting the
// single-row and multi-row scan helpers below share one implementation.
type scanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row scanner) (model.Event, error) {
	var e model.Event
	var eventType string
	var previousHash sql.NullString
	var payloadJSON string

	if err := row.Scan(
		&e.ID, &eventType, &e.SpaceID, &e.Timestamp, &e.SequenceNumber,
		&e.Hash, &previousHash, &e.Version, &payloadJSON,
	); err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}

	e.Type = model.EventType(eventType)
	if previousHash.Valid {
		e.PreviousHash = &previousHash.String
	}

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return model.Event{}, err
	}
	e.Payload = payload

	return e, nil
}

// LatestSnapshot returns the snapshot for spaceID with the greatest
// event_sequence_number, or (nil, nil) if none exists.
func (s *Store) LatestSnapshot(ctx context.Context, spaceID string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots
		WHERE space_id = ?
		ORDER BY event_sequence_number DESC
		LIMIT 1
	`, spaceID)

	snap, err := scanSnapshotRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, databaseError("latest_snapshot", err)
	}
	return &snap, nil
}

// SnapshotAtOrBefore returns the snapshot for spaceID with the largest
// event_sequence_number among those whose timestamp is <= atTimestamp,
// or (nil, nil) if none qualifies. Used by temporal-cutoff
// reconstruction.
func (s *Store) SnapshotAtOrBefore(ctx context.Context, spaceID, atTimestamp string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots
		WHERE space_id = ? AND timestamp <= ?
		ORDER BY event_sequence_number DESC
		LIMIT 1
	`, spaceID, atTimestamp)

	snap, err := scanSnapshotRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, databaseError("snapshot_at_or_before", err)
	}
	return &snap, nil
}

// ListSnapshots returns every snapshot for spaceID ordered by
// event_sequence_number ascending.
func (s *Store) ListSnapshots(ctx context.Context, spaceID string) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots
		WHERE space_id = ?
		ORDER BY event_sequence_number ASC
	`, spaceID)
	if err != nil {
		return nil, databaseError("list_snapshots", err)
	}
	defer rows.Close()

	snaps := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, databaseError("scan_snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("iterate_snapshots", err)
	}
	return snaps, nil
}

// AllSnapshots performs a total-iteration scan of every snapshot. Used
// by storage accounting.
func (s *Store) AllSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots
		ORDER BY space_id ASC, event_sequence_number ASC
	`)
	if err != nil {
		return nil, databaseError("all_snapshots", err)
	}
	defer rows.Close()

	snaps := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, databaseError("scan_snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("iterate_snapshots", err)
	}
	return snaps, nil
}

func scanSnapshotRow(row scanner) (model.Snapshot, error) {
	var snap model.Snapshot
	var stateJSON string

	if err := row.Scan(
		&snap.ID, &snap.SpaceID, &snap.EventSequenceNumber, &snap.Timestamp, &stateJSON, &snap.Hash,
	); err != nil {
		return model.Snapshot{}, err
	}

	state, err := unmarshalState(stateJSON)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.State = state

	return snap, nil
}
