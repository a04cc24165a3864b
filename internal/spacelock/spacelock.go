// Package spacelock serializes writes within one space while leaving
// different spaces fully concurrent: the mutual-exclusion primitive
// the write pipeline holds across its read-tail/compute-hash/insert
// sequence.
//
// One mutex per space_id is created lazily on first use and discarded
// once its pending-operation chain drains, so the table stays empty
// for idle spaces.
package spacelock

import "sync"

type entry struct {
	mu       sync.Mutex
	refcount int
}

// Table is a registry of per-space-id mutexes.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty lock table.
func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for spaceID, creating it if this is the first
// in-flight operation for that space. The returned func releases the
// lock and, if no other operation is waiting, removes the entry.
func (t *Table) Lock(spaceID string) (unlock func()) {
	t.mu.Lock()
	e, ok := t.entries[spaceID]
	if !ok {
		e = &entry{}
		t.entries[spaceID] = e
	}
	e.refcount++
	t.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		t.mu.Lock()
		e.refcount--
		if e.refcount == 0 {
			delete(t.entries, spaceID)
		}
		t.mu.Unlock()
	}
}
