// Package diffsource reconstructs a source document from a genesis
// space_created event plus a chain of space_evolved AST-diff events,
// verifying each step's declared source_hash.
package diffsource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rblogdb/rblog/internal/canon"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Reconstructor replays AST-diff events into a source document.
type Reconstructor struct {
	Store *store.Store
}

// ReconstructedSource is the output of ReconstructSource: the
// resulting document tree and the sequence number of the last diff
// step folded in.
type ReconstructedSource struct {
	Source              any
	EventSequenceNumber int64
}

// diffOp is one element of an event's ast_diff array.
type diffOp struct {
	Path      string `json:"path"`
	Operation string `json:"operation"`
	After     any    `json:"after"`
}

// ReconstructSource replays a space's space_created/space_evolved
// events, applying each step's ast_diff operations in order and
// verifying the running state's canonical-serialized hash against the
// event's declared source_hash. If atTimestamp is supplied, only
// events up to and including that instant are folded.
func (r *Reconstructor) ReconstructSource(ctx context.Context, spaceID string, atTimestamp *string) (ReconstructedSource, error) {
	if atTimestamp != nil {
		if _, err := time.Parse(time.RFC3339, *atTimestamp); err != nil {
			return ReconstructedSource{}, &model.InvalidQuery{Field: "atTimestamp", Reason: "must be an ISO-8601 instant"}
		}
	}

	events, err := r.Store.EventsBySpace(ctx, spaceID)
	if err != nil {
		return ReconstructedSource{}, err
	}
	if len(events) == 0 {
		return ReconstructedSource{}, &model.InvalidQuery{Field: "spaceId", Reason: "space has no events"}
	}

	genesis := events[0]
	if genesis.Type != model.EventSpaceCreated {
		return ReconstructedSource{}, &model.InvalidEvent{
			Field:  "type",
			Reason: "genesis event must be space_created to reconstruct source",
		}
	}

	state, step, err := initialState(genesis)
	if err != nil {
		return ReconstructedSource{}, err
	}

	result := ReconstructedSource{Source: state, EventSequenceNumber: genesis.SequenceNumber}

	for _, e := range events[1:] {
		if e.Type != model.EventSpaceEvolved {
			continue
		}
		if atTimestamp != nil && e.Timestamp > *atTimestamp {
			break
		}

		step++

		diffs, err := parseDiffs(e.Payload)
		if err != nil {
			return ReconstructedSource{}, &model.InvalidEvent{
				Field:  "ast_diff",
				Reason: fmt.Sprintf("step %d: %v", step, err),
			}
		}

		for _, op := range diffs {
			state, err = applyOp(state, op)
			if err != nil {
				return ReconstructedSource{}, &model.InvalidEvent{
					Field:  "ast_diff",
					Reason: fmt.Sprintf("step %d: %v", step, err),
				}
			}
		}

		expected, _ := e.Payload["source_hash"].(string)
		if expected != "" {
			actual, err := canon.StateHash(state)
			if err != nil {
				return ReconstructedSource{}, fmt.Errorf("diffsource: compute state hash: %w", err)
			}
			if actual != expected {
				return ReconstructedSource{}, &model.InvalidEvent{
					Field:  "sourceHash",
					Reason: fmt.Sprintf("step %d: expected %s, got %s", step, expected, actual),
				}
			}
		}

		result.Source = state
		result.EventSequenceNumber = e.SequenceNumber
	}

	return result, nil
}

// initialState parses the genesis event's "source" field: as JSON if
// it parses, else wrapped as {"source": <string>}.
func initialState(genesis model.Event) (any, int, error) {
	raw, ok := genesis.Payload["source"].(string)
	if !ok {
		return nil, 0, &model.InvalidEvent{Field: "source", Reason: "genesis event must carry a source string"}
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, 0, nil
	}
	return map[string]any{"source": raw}, 0, nil
}

func parseDiffs(payload map[string]any) ([]diffOp, error) {
	raw, ok := payload["ast_diff"]
	if !ok {
		return nil, fmt.Errorf("missing ast_diff")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("ast_diff is not serializable: %w", err)
	}

	var ops []diffOp
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("ast_diff is not a valid operation list: %w", err)
	}
	return ops, nil
}

// applyOp applies one add/modify/remove operation to state at its
// dot-separated path, using clone-and-set so the caller's original
// value is never aliased or mutated in place.
func applyOp(state any, op diffOp) (any, error) {
	switch op.Operation {
	case "add", "modify":
		return setAtPath(state, splitPath(op.Path), op.After)
	case "remove":
		return removeAtPath(state, splitPath(op.Path)), nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op.Operation)
	}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// setAtPath returns a clone of state with value set at the given
// path, creating missing intermediate objects as needed.
func setAtPath(state any, path []string, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}

	obj := cloneObject(state)
	head, rest := path[0], path[1:]

	if len(rest) == 0 {
		obj[head] = value
		return obj, nil
	}

	child, err := setAtPath(obj[head], rest, value)
	if err != nil {
		return nil, err
	}
	obj[head] = child
	return obj, nil
}

// removeAtPath returns a clone of state with the value at path
// deleted, silently no-oping if any segment of the path is absent.
func removeAtPath(state any, path []string) any {
	if len(path) == 0 {
		return state
	}

	obj, ok := state.(map[string]any)
	if !ok {
		return state
	}
	clone := cloneObject(state)

	head, rest := path[0], path[1:]
	if len(rest) == 0 {
		delete(clone, head)
		return clone
	}

	child, ok := obj[head]
	if !ok {
		return clone
	}
	clone[head] = removeAtPath(child, rest)
	return clone
}

func cloneObject(state any) map[string]any {
	out := make(map[string]any)
	if obj, ok := state.(map[string]any); ok {
		for k, v := range obj {
			out[k] = v
		}
	}
	return out
}
