package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_StartsAtZero(t *testing.T) {
	var s Sequence
	assert.Equal(t, int64(0), s.Current())
}

func TestSequence_NextIncrementsMonotonically(t *testing.T) {
	var s Sequence

	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(3), s.Next())
	assert.Equal(t, int64(3), s.Current())
}

func TestSequence_Reset(t *testing.T) {
	var s Sequence
	s.Next()
	s.Next()

	s.Reset()
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
}

func TestSequence_ThreadSafe(t *testing.T) {
	var s Sequence
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				v := s.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), s.Current())
}

func TestSequentialGenerator(t *testing.T) {
	gen := NewSequentialGenerator("scenario")

	assert.Equal(t, "scenario-1", gen.Generate())
	assert.Equal(t, "scenario-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "scenario-1", gen.Generate())
}

func TestSequentialGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequentialGenerator("")
	assert.Equal(t, "origin-1", gen.Generate())
}
