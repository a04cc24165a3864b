package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rblogdb/rblog/model"
)

// InsertEvent appends one event row. The write pipeline has already
// computed sequence_number, hash, and previous_hash under the
// per-space lock; InsertEvent performs no chain logic of its own.
func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	var previousHash sql.NullString
	if e.PreviousHash != nil {
		previousHash = sql.NullString{String: *e.PreviousHash, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		string(e.Type),
		e.SpaceID,
		e.Timestamp,
		e.SequenceNumber,
		e.Hash,
		previousHash,
		e.Version,
		payloadJSON,
	)
	if err != nil {
		return databaseError("insert_event", err)
	}
	return nil
}

// InsertEventIfAbsent inserts e unless an event with the same id
// already exists, in which case it reports skipped=true and performs
// no write. Used by the archive importer's duplicate-id dedupe rule.
func (s *Store) InsertEventIfAbsent(ctx context.Context, e model.Event) (skipped bool, err error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, e.ID).Scan(&exists); err != nil {
		return false, databaseError("check_event_exists", err)
	}
	if exists > 0 {
		return true, nil
	}
	if err := s.InsertEvent(ctx, e); err != nil {
		return false, err
	}
	return false, nil
}

// InsertSnapshot appends one snapshot row. The caller has already
// validated that event_sequence_number strictly advances past any
// prior snapshot for the space.
func (s *Store) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	stateJSON, err := marshalState(snap.State)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(id, space_id, event_sequence_number, timestamp, state, hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		snap.SpaceID,
		snap.EventSequenceNumber,
		snap.Timestamp,
		stateJSON,
		snap.Hash,
	)
	if err != nil {
		return databaseError("insert_snapshot", err)
	}
	return nil
}

// SetMetadata upserts a single metadata key/value pair.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return databaseError("set_metadata", err)
	}
	return nil
}

// GetMetadata returns the value for key, or ("", false) if absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, databaseError("get_metadata", err)
	}
	return value, true, nil
}
