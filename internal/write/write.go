// Package write implements the event-log write pipeline: synchronous
// validation, per-space-serialized chain linking and hashing, and an
// asynchronous auto-snapshot hook.
package write

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rblogdb/rblog/internal/canon"
	"github.com/rblogdb/rblog/internal/chain"
	"github.com/rblogdb/rblog/internal/spacelock"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Validator checks a candidate payload before the per-space lock is
// acquired. The schema registry (internal/schema) implements this;
// a Pipeline with no Validator configured skips the check.
type Validator interface {
	Validate(eventType model.EventType, spaceID string, payload map[string]any) error
}

// Snapshotter is the subset of the snapshot manager the write pipeline
// needs for its auto-snapshot hook. Expressed as an interface here
// (rather than importing internal/snapshot directly) because the
// snapshot manager itself reads through the store the write pipeline
// already holds — depending on the concrete type would create an
// import cycle the moment snapshot needs anything write-side.
type Snapshotter interface {
	ShouldAutoSnapshot(ctx context.Context, spaceID string, interval int64) (bool, error)
	CreateSnapshot(ctx context.Context, spaceID string) (model.Snapshot, error)
}

// Pipeline is the write_event operation. It owns no state beyond its
// dependencies: the store, a per-space lock table, an optional schema
// validator, an optional auto-snapshotter, an ID generator, and a
// logger.
type Pipeline struct {
	Store            *store.Store
	Locks            *spacelock.Table
	IDGenerator      model.IDGenerator
	Validator        Validator
	Snapshotter      Snapshotter
	SnapshotInterval int64
	Logger           *slog.Logger
}

// WriteEvent validates input, then — under the per-space lock — reads
// the chain tail, computes the next link and hash, and inserts. After
// a successful insert it fires the auto-snapshot check in a detached
// goroutine so the snapshot outcome never affects the write result.
func (p *Pipeline) WriteEvent(ctx context.Context, input model.EventInput) (model.Event, error) {
	logger := p.logger()

	if err := validateInput(input); err != nil {
		return model.Event{}, err
	}

	if p.Validator != nil {
		if err := p.Validator.Validate(input.Type, input.SpaceID, input.Payload); err != nil {
			return model.Event{}, &model.InvalidEvent{Field: "payload", Reason: err.Error()}
		}
	}

	unlock := p.Locks.Lock(input.SpaceID)
	event, err := p.writeUnderLock(ctx, input)
	unlock()
	if err != nil {
		return model.Event{}, err
	}

	logger.Info("write_event committed",
		"space_id", event.SpaceID,
		"sequence_number", event.SequenceNumber,
		"type", string(event.Type),
	)

	if p.Snapshotter != nil && p.SnapshotInterval > 0 {
		go p.maybeAutoSnapshot(event.SpaceID)
	}

	return event, nil
}

func (p *Pipeline) writeUnderLock(ctx context.Context, input model.EventInput) (model.Event, error) {
	previousHash, sequenceNumber, err := chain.NextLink(ctx, p.Store, input.SpaceID)
	if err != nil {
		return model.Event{}, err
	}

	id := p.IDGenerator()

	hash, err := canon.EventHash(canon.EventHashInput{
		ID:             id,
		Type:           string(input.Type),
		SpaceID:        input.SpaceID,
		Timestamp:      input.Timestamp,
		SequenceNumber: sequenceNumber,
		PreviousHash:   previousHash,
		Version:        input.Version,
		Payload:        input.Payload,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("write: compute event hash: %w", err)
	}

	event := model.Event{
		ID:             id,
		Type:           input.Type,
		SpaceID:        input.SpaceID,
		Timestamp:      input.Timestamp,
		SequenceNumber: sequenceNumber,
		Hash:           hash,
		PreviousHash:   previousHash,
		Version:        input.Version,
		Payload:        input.Payload,
	}

	if err := p.Store.InsertEvent(ctx, event); err != nil {
		return model.Event{}, err
	}

	return event, nil
}

func (p *Pipeline) maybeAutoSnapshot(spaceID string) {
	logger := p.logger()
	ctx := context.Background()

	should, err := p.Snapshotter.ShouldAutoSnapshot(ctx, spaceID, p.SnapshotInterval)
	if err != nil {
		logger.Warn("auto-snapshot check failed", "space_id", spaceID, "error", err)
		return
	}
	if !should {
		return
	}

	if _, err := p.Snapshotter.CreateSnapshot(ctx, spaceID); err != nil {
		logger.Warn("auto-snapshot failed", "space_id", spaceID, "error", err)
		return
	}
	logger.Debug("auto-snapshot created", "space_id", spaceID)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func validateInput(input model.EventInput) error {
	if strings.TrimSpace(input.SpaceID) == "" {
		return &model.InvalidEvent{Field: "space_id", Reason: "must be non-empty"}
	}
	if !model.IsValidEventType(input.Type) {
		return &model.InvalidEvent{Field: "type", Reason: fmt.Sprintf("%q is not one of the eleven enumerated tags", input.Type)}
	}
	if strings.TrimSpace(input.Timestamp) == "" {
		return &model.InvalidEvent{Field: "timestamp", Reason: "must be non-empty"}
	}
	if _, err := time.Parse(time.RFC3339, input.Timestamp); err != nil {
		return &model.InvalidEvent{Field: "timestamp", Reason: "must parse as an ISO-8601 instant"}
	}
	if input.Version < 1 {
		return &model.InvalidEvent{Field: "version", Reason: "must be an integer >= 1"}
	}
	return nil
}
