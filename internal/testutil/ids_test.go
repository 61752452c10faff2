package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator_Sequence(t *testing.T) {
	gen := NewSequentialIDGenerator("ch")

	assert.Equal(t, "ch-1", gen.Generate())
	assert.Equal(t, "ch-2", gen.Generate())
	assert.Equal(t, "ch-3", gen.Generate())
}

func TestSequentialIDGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequentialIDGenerator("")

	assert.Equal(t, "obj-1", gen.Generate())
}

func TestSequentialIDGenerator_Reset(t *testing.T) {
	gen := NewSequentialIDGenerator("ch")

	gen.Generate()
	gen.Generate()
	gen.Reset()

	assert.Equal(t, "ch-1", gen.Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDGenerator("ch")

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	ids := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}
