package service

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrivalClock_StrictlyIncreasing(t *testing.T) {
	clock := NewArrivalClock()

	prev := clock.Next()
	for i := 0; i < 1000; i++ {
		next := clock.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestArrivalClock_UniqueUnderConcurrency(t *testing.T) {
	clock := NewArrivalClock()

	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	results := make(chan int64, goroutines*perGoroutine)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, goroutines*perGoroutine)
	var ordinals []int64
	for v := range results {
		assert.False(t, seen[v], "ordinal %d issued twice", v)
		seen[v] = true
		ordinals = append(ordinals, v)
	}
	assert.Len(t, ordinals, goroutines*perGoroutine)

	// Ordinals track the wall clock closely enough to be used as age.
	sort.Slice(ordinals, func(i, j int) bool { return ordinals[i] < ordinals[j] })
	now := time.Now().UnixMicro()
	assert.InDelta(t, now, ordinals[len(ordinals)-1], float64(10*time.Second/time.Microsecond))
}

func TestArrivalCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := ArrivalCutoff(now, 30*time.Minute)
	assert.Equal(t, now.Add(-30*time.Minute).UnixMicro(), cutoff)
}
