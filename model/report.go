package model

// BrokenLink describes the first chain discontinuity verify_integrity
// found in a space: the event where the stored previous_hash disagrees
// with the prior event's actual hash, or whose stored hash disagrees
// with the hash recomputed from its canonical fields.
type BrokenLink struct {
	EventID  string
	Expected string
	Actual   string
}

// IntegrityReport is the result of verify_integrity, scoped to one space
// or, when verify_integrity is given an empty space id, the whole
// database.
type IntegrityReport struct {
	Valid           bool
	EventsChecked   int64
	FirstBrokenLink *BrokenLink
	ElapsedMillis   int64
}

// ImportError records one malformed entry skipped during
// import_archive; EventID is "unknown" when the entry had no id field.
type ImportError struct {
	EventID string
	Reason  string
}

// ImportReport is the result of a successful import_archive call. A
// chain violation or structural failure returns ImportFailed instead of
// a report.
type ImportReport struct {
	ImportedEvents    int64
	SkippedDuplicates int64
	Errors            []ImportError
}

// SpaceUsage is one space's contribution to a StorageReport, produced in
// space_id sort order.
type SpaceUsage struct {
	SpaceID        string
	EstimatedBytes int64
	EventCount     int64
}

// StorageReport is the result of get_storage_usage: total estimated
// storage consumption plus a per-space breakdown and the observed
// timestamp range.
type StorageReport struct {
	EstimatedBytes int64
	EventCount     int64
	SnapshotCount  int64
	MinTimestamp   string
	MaxTimestamp   string
	PerSpace       []SpaceUsage
}

// PressureLevel is one of five threshold classifications of storage
// consumption relative to an available-bytes budget.
type PressureLevel string

const (
	PressureNormal       PressureLevel = "NORMAL"
	PressureCompact      PressureLevel = "COMPACT"
	PressureExportPrompt PressureLevel = "EXPORT_PROMPT"
	PressureAggressive   PressureLevel = "AGGRESSIVE"
	PressureBlocked      PressureLevel = "BLOCKED"
)

// PressureReport is the pure output of the pressure classifier: a level,
// the ratio that produced it, and a level-specific recommendation.
type PressureReport struct {
	Level          PressureLevel
	UsageRatio     float64
	Recommendation string
}

// CompactionReport is the result of a successful compact call: the
// snapshot it produced, how many events it now covers that the
// prior snapshot didn't, and an advisory (never-enforced) bytes-saved
// estimate.
type CompactionReport struct {
	SnapshotID          string
	EventsCovered       int64
	EstimatedBytesSaved int64
}
