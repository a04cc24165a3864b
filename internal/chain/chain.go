// Package chain computes and verifies the per-space hash-chain link
// that ties each event to its predecessor.
package chain

import (
	"context"
	"fmt"

	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Intact is the sentinel VerifyLinks returns for an unbroken chain: no
// element's index is ever negative, so -1 can never collide with a real
// broken-link position.
const Intact = -1

// NextLink returns the previous_hash and sequence_number the next
// event appended to spaceID must carry. With no prior event in the
// space it returns (nil, 1) — the genesis link.
func NextLink(ctx context.Context, s *store.Store, spaceID string) (previousHash *string, nextSequence int64, err error) {
	tail, err := s.TailEvent(ctx, spaceID)
	if err != nil {
		return nil, 0, fmt.Errorf("chain: next link for space %q: %w", spaceID, err)
	}
	if tail == nil {
		return nil, 1, nil
	}
	hash := tail.Hash
	return &hash, tail.SequenceNumber + 1, nil
}

// VerifyLinks checks an ordered, single-space slice of events for an
// intact previous_hash chain: the first element must have a nil
// PreviousHash, and every subsequent element's PreviousHash must equal
// its predecessor's Hash. It returns the index of the first violation,
// or Intact if there is none.
//
// VerifyLinks does not recompute hashes; it only checks link
// continuity. Recomputation against canonical serialization is the
// integrity verifier's job (internal/integrity), which walks the
// chain with its own inline link check rather than calling this.
func VerifyLinks(events []model.Event) int {
	for i, e := range events {
		if i == 0 {
			if e.PreviousHash != nil {
				return 0
			}
			continue
		}
		prev := events[i-1]
		if e.PreviousHash == nil || *e.PreviousHash != prev.Hash {
			return i
		}
	}
	return Intact
}

// BrokenLinkAt builds the BrokenLink report for a VerifyLinks violation
// at index i: the expected value is "null (genesis)" at position 0,
// otherwise the prior event's hash (or "null" if the prior event
// itself has no hash, as when a caller passes an already-broken
// prefix).
func BrokenLinkAt(events []model.Event, i int) model.BrokenLink {
	e := events[i]
	actual := "unknown"
	if e.PreviousHash != nil {
		actual = *e.PreviousHash
	}

	if i == 0 {
		return model.BrokenLink{EventID: e.ID, Expected: "null (genesis)", Actual: actual}
	}

	expected := "null"
	if prev := events[i-1]; prev.Hash != "" {
		expected = prev.Hash
	}
	return model.BrokenLink{EventID: e.ID, Expected: expected, Actual: actual}
}
