package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by the service tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFlightRegistry_AcquireRelease(t *testing.T) {
	clock := newFakeClock()
	registry := NewFlightRegistry(clock)

	t.Run("first acquire succeeds", func(t *testing.T) {
		ok, heldFor := registry.Acquire("user-1")
		assert.True(t, ok)
		assert.Equal(t, time.Duration(0), heldFor)
		assert.Equal(t, 1, registry.InFlight())
	})

	t.Run("second acquire reports how long the first has run", func(t *testing.T) {
		clock.Advance(42 * time.Second)
		ok, heldFor := registry.Acquire("user-1")
		assert.False(t, ok)
		assert.Equal(t, 42*time.Second, heldFor)
	})

	t.Run("other users are independent", func(t *testing.T) {
		ok, _ := registry.Acquire("user-2")
		assert.True(t, ok)
		assert.Equal(t, 2, registry.InFlight())
	})

	t.Run("release frees the slot", func(t *testing.T) {
		registry.Release("user-1")
		ok, _ := registry.Acquire("user-1")
		assert.True(t, ok)
	})

	t.Run("releasing an absent entry is a no-op", func(t *testing.T) {
		before := registry.InFlight()
		registry.Release("nobody")
		assert.Equal(t, before, registry.InFlight())
	})
}

func TestFlightRegistry_Sweep(t *testing.T) {
	clock := newFakeClock()
	registry := NewFlightRegistry(clock)

	registry.Acquire("old-1")
	registry.Acquire("old-2")
	clock.Advance(5 * time.Minute)
	registry.Acquire("fresh")
	clock.Advance(5 * time.Minute)

	evicted := registry.Sweep(6 * time.Minute)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, registry.InFlight())

	// The fresh entry is 5 minutes old and survives; a second sweep finds
	// nothing new.
	assert.Equal(t, 0, registry.Sweep(6*time.Minute))

	ok, _ := registry.Acquire("old-1")
	assert.True(t, ok, "swept entries can be reacquired")
}

func TestFlightRegistry_NilClock(t *testing.T) {
	registry := NewFlightRegistry(nil)
	ok, heldFor := registry.Acquire("user")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), heldFor)
}

func TestFlightRegistry_ConcurrentAcquire(t *testing.T) {
	registry := NewFlightRegistry(newFakeClock())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := registry.Acquire("shared"); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, registry.InFlight())
}
