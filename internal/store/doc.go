// Package store provides SQLite-backed durable storage for rblog event
// logs.
//
// The store persists three tables:
//   - events: the append-only, hash-chained log, keyed by id, indexed
//     by space_id, type, timestamp, and (space_id, sequence_number)
//   - snapshots: periodic folded state per space, used to bound replay
//   - metadata: small key/value bookkeeping (e.g. the schema_version
//     stamp the facade writes on open)
//
// # Ordering
//
// Per-space ordering is sequence_number, assigned by the write
// pipeline under the per-space lock before InsertEvent is called.
// Cross-space queries (by type, by time range) order by
// sequence_number then id to stay deterministic when timestamps
// collide.
//
// # Hash chain
//
// The store does not compute or verify hashes; it persists whatever
// hash and previous_hash the caller supplies. Chain construction and
// verification live in the chain package so the store stays a plain
// persistence layer.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - single connection (SetMaxOpenConns(1)): SQLite allows only one
//     writer; application-level concurrency across spaces is handled
//     by the spacelock package, not by the database
package store
