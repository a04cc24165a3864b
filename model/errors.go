package model

import "fmt"

// The seven error kinds rblog ever returns. Every fallible operation
// returns (value, error); nothing panics. Each kind is a distinct Go
// type rather than one struct with a code field, since each carries
// different structured fields and errors.As already gives per-type
// dispatch.

// IntegrityViolation signals a hash-chain or stored-hash mismatch,
// surfaced by the verifier, the exporter, or the importer.
type IntegrityViolation struct {
	EventID  string
	Expected string
	Actual   string
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("integrity violation at event %s: expected %s, got %s", e.EventID, e.Expected, e.Actual)
}

// StorageFull is reserved for callers that wrap rblog with a budget
// check; rblog itself never returns it, but the type is part of the
// public error taxonomy so wrapping callers can construct it uniformly.
type StorageFull struct {
	Used int64
	Max  int64
}

func (e *StorageFull) Error() string {
	return fmt.Sprintf("storage full: used %d of max %d bytes", e.Used, e.Max)
}

// InvalidQuery signals a bad cursor, an out-of-range timestamp, or a
// malformed date passed to one of the query/reconstruction operations.
type InvalidQuery struct {
	Field  string
	Reason string
}

func (e *InvalidQuery) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid query: %s", e.Field)
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// InvalidEvent signals that write-input validation failed, or that diff
// reconstruction encountered a bad payload.
type InvalidEvent struct {
	Field  string
	Reason string
}

func (e *InvalidEvent) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid event: %s", e.Field)
	}
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
}

// SnapshotFailed signals there was nothing new to fold into a snapshot,
// or that the space has no events at all.
type SnapshotFailed struct {
	SpaceID string
	Reason  string
}

func (e *SnapshotFailed) Error() string {
	return fmt.Sprintf("snapshot failed for space %q: %s", e.SpaceID, e.Reason)
}

// ImportFailed signals any archive codec or chain-verification failure
// encountered while importing a .rblogs archive.
type ImportFailed struct {
	Reason  string
	EventID string
}

func (e *ImportFailed) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("import failed: %s", e.Reason)
	}
	return fmt.Sprintf("import failed: %s (event %s)", e.Reason, e.EventID)
}

// DatabaseError signals an underlying record-store fault.
type DatabaseError struct {
	Operation string
	Reason    string
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %s", e.Operation, e.Reason)
}
