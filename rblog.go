// Package rblog is the public facade over the embedded event log: a
// single entry point wiring the write pipeline, paginated queries,
// integrity verification, snapshotting, state and source
// reconstruction, archive export/import, and storage accounting.
package rblog

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rblogdb/rblog/config"
	"github.com/rblogdb/rblog/internal/archive"
	"github.com/rblogdb/rblog/internal/compaction"
	"github.com/rblogdb/rblog/internal/diffsource"
	"github.com/rblogdb/rblog/internal/integrity"
	"github.com/rblogdb/rblog/internal/query"
	"github.com/rblogdb/rblog/internal/reconstruct"
	"github.com/rblogdb/rblog/internal/schema"
	"github.com/rblogdb/rblog/internal/snapshot"
	"github.com/rblogdb/rblog/internal/spacelock"
	"github.com/rblogdb/rblog/internal/storageacct"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/internal/write"
	"github.com/rblogdb/rblog/model"
)

const metadataSchemaVersionKey = "schema_version"

// EventLog is the facade type returned by Open. It owns the record
// store and every component built on top of it.
type EventLog struct {
	store  *store.Store
	config *config.Config

	write       *write.Pipeline
	query       *query.Engine
	verifier    *integrity.Verifier
	snapshots   *snapshot.Manager
	reconstruct *reconstruct.Reconstructor
	diffsource  *diffsource.Reconstructor
	exporter    *archive.Exporter
	importer    *archive.Importer
	storage     *storageacct.Accountant
	compactor   *compaction.Compactor

	// Schema is the optional payload validator. Exposed directly so
	// callers can Register CUE constraints after Open; with no rules
	// registered it validates nothing.
	Schema *schema.Registry
}

// Open opens (creating if absent) the SQLite-backed event log at
// dir/<database_name>.db, applying cfg's defaults for anything left
// unset, and wires every component together. A nil cfg is equivalent
// to config.Default().
func Open(dir string, cfg *config.Config) (*EventLog, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg = cfg.WithDefaults()
	}

	path := filepath.Join(dir, cfg.DatabaseName+".db")
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}

	if err := s.SetMetadata(context.Background(), metadataSchemaVersionKey, strconv.Itoa(cfg.SchemaVersion)); err != nil {
		s.Close()
		return nil, fmt.Errorf("rblog: stamp schema version: %w", err)
	}

	locks := spacelock.New()
	registry := schema.New()

	snapMgr := &snapshot.Manager{Store: s, Reducer: cfg.StateReducer, IDGenerator: cfg.IDGenerator}

	log := &EventLog{
		store:  s,
		config: cfg,

		write: &write.Pipeline{
			Store:            s,
			Locks:            locks,
			IDGenerator:      cfg.IDGenerator,
			Validator:        registry,
			Snapshotter:      snapMgr,
			SnapshotInterval: cfg.SnapshotInterval,
			Logger:           cfg.Logger,
		},
		query:       &query.Engine{Store: s},
		verifier:    &integrity.Verifier{Store: s, Now: cfg.Now},
		snapshots:   snapMgr,
		reconstruct: &reconstruct.Reconstructor{Store: s, Reducer: cfg.StateReducer},
		diffsource:  &diffsource.Reconstructor{Store: s},
		exporter:    &archive.Exporter{Store: s},
		importer:    &archive.Importer{Store: s},
		storage:     &storageacct.Accountant{Store: s},
		compactor:   &compaction.Compactor{Store: s, Snapshotter: snapMgr},
		Schema:      registry,
	}

	return log, nil
}

// Close releases the underlying database connection.
func (e *EventLog) Close() error {
	return e.store.Close()
}

// WriteEvent is write_event(input).
func (e *EventLog) WriteEvent(ctx context.Context, input model.EventInput) (model.Event, error) {
	return e.write.WriteEvent(ctx, input)
}

// QueryBySpace is query_by_space(id, opts?).
func (e *EventLog) QueryBySpace(ctx context.Context, spaceID string, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	opts = e.clampLimit(opts)
	return e.query.QueryBySpace(ctx, spaceID, opts)
}

// QueryByType is query_by_type(type, opts?).
func (e *EventLog) QueryByType(ctx context.Context, eventType model.EventType, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	opts = e.clampLimit(opts)
	return e.query.QueryByType(ctx, eventType, opts)
}

// QueryByTime is query_by_time(from, to, opts?).
func (e *EventLog) QueryByTime(ctx context.Context, from, to string, opts model.QueryOptions) (model.PaginatedResult[model.Event], error) {
	opts = e.clampLimit(opts)
	return e.query.QueryByTime(ctx, from, to, opts)
}

// clampLimit enforces config's max_events_per_query ceiling on top of
// model.QueryOptions.Normalize's own [1, 1000] clamp, for callers that
// configure a tighter ceiling than the hard-coded maximum.
func (e *EventLog) clampLimit(opts model.QueryOptions) model.QueryOptions {
	ceiling := e.config.MaxEventsPerQuery
	if opts.Limit != nil && *opts.Limit > ceiling {
		clamped := ceiling
		opts.Limit = &clamped
	}
	return opts
}

// ReconstructState is reconstruct_state(id, at?).
func (e *EventLog) ReconstructState(ctx context.Context, spaceID string, at *string) (any, error) {
	return e.reconstruct.ReconstructState(ctx, spaceID, at)
}

// ReconstructSource rebuilds a space's source document from its
// genesis event and ast_diff chain. Only meaningful for spaces that
// follow the space_created/space_evolved convention.
func (e *EventLog) ReconstructSource(ctx context.Context, spaceID string, at *string) (diffsource.ReconstructedSource, error) {
	return e.diffsource.ReconstructSource(ctx, spaceID, at)
}

// VerifyIntegrity is verify_integrity(id?). An empty spaceID verifies
// every space.
func (e *EventLog) VerifyIntegrity(ctx context.Context, spaceID string) (model.IntegrityReport, error) {
	return e.verifier.Verify(ctx, spaceID)
}

// CreateSnapshot is create_snapshot(id).
func (e *EventLog) CreateSnapshot(ctx context.Context, spaceID string) (model.Snapshot, error) {
	return e.snapshots.CreateSnapshot(ctx, spaceID)
}

// Compact is compact(id).
func (e *EventLog) Compact(ctx context.Context, spaceID string) (model.CompactionReport, error) {
	return e.compactor.Compact(ctx, spaceID)
}

// GetStorageUsage is get_storage_usage().
func (e *EventLog) GetStorageUsage(ctx context.Context) (model.StorageReport, error) {
	return e.storage.GetStorageUsage(ctx)
}

// ClassifyPressure computes a fresh storage report and classifies it
// against the caller's available-bytes budget.
func (e *EventLog) ClassifyPressure(ctx context.Context, availableBytes int64) (model.PressureReport, error) {
	report, err := e.GetStorageUsage(ctx)
	if err != nil {
		return model.PressureReport{}, err
	}
	return storageacct.ClassifyPressure(report, availableBytes), nil
}

// ExportArchive is export_archive(id, before).
func (e *EventLog) ExportArchive(ctx context.Context, spaceID, beforeDate string) ([]byte, error) {
	return e.exporter.ExportArchive(ctx, spaceID, beforeDate)
}

// ImportArchive is import_archive(bytes).
func (e *EventLog) ImportArchive(ctx context.Context, data []byte) (model.ImportReport, error) {
	return e.importer.ImportArchive(ctx, data)
}

// ListSpaces enumerates distinct space_id values across the whole
// store, in lexicographic order.
func (e *EventLog) ListSpaces(ctx context.Context) ([]string, error) {
	return e.store.ListSpaceIDs(ctx)
}

// GetSnapshot returns the most recent snapshot for spaceID, or false
// if none exists.
func (e *EventLog) GetSnapshot(ctx context.Context, spaceID string) (*model.Snapshot, bool, error) {
	snap, err := e.store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return nil, false, err
	}
	return snap, snap != nil, nil
}

// ListSnapshots returns every snapshot for spaceID, oldest first.
func (e *EventLog) ListSnapshots(ctx context.Context, spaceID string) ([]model.Snapshot, error) {
	return e.store.ListSnapshots(ctx, spaceID)
}
