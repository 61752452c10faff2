package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates "prefix-1", "prefix-2", ... instance IDs.
//
// This enables deterministic scenario execution and golden snapshot
// comparison: the same scenario with the same generator produces
// byte-identical mutation logs. Unlike engine.FixedIDGenerator it never
// exhausts, so scenarios may construct any number of instances.
//
// Implements engine.InstanceIDGenerator.
//
// Thread-safety: Generate is safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
//
// If prefix is empty, "obj" is used.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "obj"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next sequential instance ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence. After Reset(), the next Generate() returns
// "prefix-1" again.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
