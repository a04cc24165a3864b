// Package idgen supplies model.IDGenerator implementations: a
// time-sortable default for production use and a deterministic counter
// for tests.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rblogdb/rblog/model"
)

// UUIDv7 returns a model.IDGenerator producing time-sortable UUIDv7
// strings. This is the default id_generator rblog uses when a caller
// configures none.
func UUIDv7() model.IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Counter returns a model.IDGenerator that yields prefix-1, prefix-2,
// ... in order. Intended for tests that need predictable, inspectable
// ids rather than cryptographic uniqueness.
func Counter(prefix string) model.IDGenerator {
	var mu sync.Mutex
	var n int64
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
