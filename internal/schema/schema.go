// Package schema implements the payload schema registry: an optional
// CUE constraint per (space_id glob, event type) pair that write_event
// validates a candidate payload against before entering the per-space
// lock.
package schema

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/rblogdb/rblog/model"
)

// Registry holds the registered payload constraints and implements
// internal/write.Validator. A Registry with no rules registered
// accepts every payload.
type Registry struct {
	mu    sync.RWMutex
	ctx   *cue.Context
	rules []rule
}

type rule struct {
	spaceGlob string
	eventType model.EventType
	schema    cue.Value
	source    string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{ctx: cuecontext.New()}
}

// Register compiles cueSchema and adds it as a constraint for every
// (space_id, eventType) pair where space_id matches spaceGlob (a
// path.Match-style glob, e.g. "tenant-*" or "*"). Registering the
// same (spaceGlob, eventType) pair twice adds a second, independently
// enforced rule rather than replacing the first.
func (r *Registry) Register(spaceGlob string, eventType model.EventType, cueSchema string) error {
	if _, err := path.Match(spaceGlob, "probe"); err != nil {
		return fmt.Errorf("schema: invalid space glob %q: %w", spaceGlob, err)
	}

	value := r.ctx.CompileString(cueSchema)
	if err := value.Err(); err != nil {
		return fmt.Errorf("schema: compile schema for %s/%s: %w", spaceGlob, eventType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{spaceGlob: spaceGlob, eventType: eventType, schema: value, source: cueSchema})
	return nil
}

// Validate implements internal/write.Validator. It checks payload
// against every registered rule whose glob matches spaceID and whose
// event type matches eventType, returning a joined error describing
// every violation found across every matching rule.
func (r *Registry) Validate(eventType model.EventType, spaceID string, payload map[string]any) error {
	r.mu.RLock()
	matching := make([]rule, 0, len(r.rules))
	for _, rl := range r.rules {
		if rl.eventType != eventType {
			continue
		}
		if ok, _ := path.Match(rl.spaceGlob, spaceID); ok {
			matching = append(matching, rl)
		}
	}
	r.mu.RUnlock()

	if len(matching) == 0 {
		return nil
	}

	var violations []string
	for _, rl := range matching {
		if err := validateOne(rl, payload); err != nil {
			violations = append(violations, err.Error())
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(violations, "; "))
}

func validateOne(rl rule, payload map[string]any) error {
	encoded := rl.schema.Context().Encode(payload)
	if err := encoded.Err(); err != nil {
		return fmt.Errorf("payload not representable in CUE: %w", err)
	}

	unified := rl.schema.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true), cue.All()); err != nil {
		return fmt.Errorf("schema %q: %w", rl.spaceGlob, err)
	}
	return nil
}
