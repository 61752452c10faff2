package engine

import (
	"sync"

	"github.com/google/uuid"
)

// InstanceIDGenerator generates unique IDs for constructed instances.
// Implemented by UUIDv7Generator (production) and FixedIDGenerator (tests).
type InstanceIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 instance IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, making IDs
// sortable by creation time, which is helpful when reading the mutation
// journal.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined instance IDs for testing.
//
// This enables deterministic test execution and golden trace comparison.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal
// mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns IDs in order.
//
// Example:
//
//	gen := NewFixedIDGenerator("inst-1", "inst-2")
//	gen.Generate() // "inst-1"
//	gen.Generate() // "inst-2"
//	gen.Generate() // panic: all IDs exhausted
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics when all IDs have been consumed. Fail-fast catches test
// misconfiguration (a test constructed more instances than expected).
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
