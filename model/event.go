// Package model holds the data types shared across rblog's components:
// events, snapshots, query contracts, and report shapes. Nothing in this
// package depends on storage, hashing, or any other internal component,
// so it can be imported freely without creating cycles.
package model

// EventType is one of the eleven enumerated event tags a space can record.
type EventType string

const (
	EventSpaceCreated    EventType = "space_created"
	EventSpaceEvolved    EventType = "space_evolved"
	EventSpaceForked     EventType = "space_forked"
	EventSpaceDeleted    EventType = "space_deleted"
	EventStateChanged    EventType = "state_changed"
	EventActionInvoked   EventType = "action_invoked"
	EventIntentSubmitted EventType = "intent_submitted"
	EventIntentQueued    EventType = "intent_queued"
	EventIntentResolved  EventType = "intent_resolved"
	EventUserFeedback    EventType = "user_feedback"
	EventSystemEvent     EventType = "system_event"
)

// ValidEventTypes enumerates every tag write_event will accept.
var ValidEventTypes = map[EventType]bool{
	EventSpaceCreated:    true,
	EventSpaceEvolved:    true,
	EventSpaceForked:     true,
	EventSpaceDeleted:    true,
	EventStateChanged:    true,
	EventActionInvoked:   true,
	EventIntentSubmitted: true,
	EventIntentQueued:    true,
	EventIntentResolved:  true,
	EventUserFeedback:    true,
	EventSystemEvent:     true,
}

// IsValidEventType reports whether t is one of the eleven enumerated tags.
func IsValidEventType(t EventType) bool {
	return ValidEventTypes[t]
}

// EventInput is the caller-supplied shape write_event accepts, before a
// sequence number, hash, and previous_hash are assigned.
type EventInput struct {
	Type      EventType
	SpaceID   string
	Timestamp string
	Version   int
	Payload   map[string]any
}

// Event is the atomic, immutable append. Once written, no field changes.
type Event struct {
	ID             string
	Type           EventType
	SpaceID        string
	Timestamp      string
	SequenceNumber int64
	Hash           string
	PreviousHash   *string
	Version        int
	Payload        map[string]any
}

// Snapshot is a checkpoint of reducer-produced state pinned to a specific
// event sequence number within one space.
type Snapshot struct {
	ID                  string
	SpaceID             string
	EventSequenceNumber int64
	Timestamp           string
	State               any
	Hash                string
}

// Reducer folds an event into a running state. Callers must supply a pure,
// deterministic implementation; rblog never inspects its internals.
type Reducer func(state any, event Event) any

// DefaultReducer is the last-write-wins reducer used when the caller
// supplies none: it simply returns the incoming event's payload.
func DefaultReducer(_ any, event Event) any {
	return event.Payload
}

// IDGenerator produces opaque, store-unique identifiers for events and
// snapshots. The default implementation uses a cryptographic RNG (see
// internal/idgen); tests substitute a deterministic counter.
type IDGenerator func() string
