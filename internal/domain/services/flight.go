package services

import (
	"sync"
	"time"

	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

// FlightRegistry is the in-memory single-flight store: one in-flight
// generation per user identity. The clock is injected so lock aging is
// testable without sleeping.
type FlightRegistry struct {
	mu       sync.Mutex
	inFlight map[string]time.Time
	clock    ports.Clock
}

// NewFlightRegistry creates an empty registry. A nil clock falls back to
// real time.
func NewFlightRegistry(clock ports.Clock) *FlightRegistry {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &FlightRegistry{
		inFlight: make(map[string]time.Time),
		clock:    clock,
	}
}

// Acquire records an in-flight generation for the user. When one is
// already recorded it returns false plus how long that one has been
// running.
func (r *FlightRegistry) Acquire(userID string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if started, exists := r.inFlight[userID]; exists {
		return false, r.clock.Since(started)
	}
	r.inFlight[userID] = r.clock.Now()
	return true, 0
}

// Release removes the user's entry. Releasing an absent entry is a
// no-op, which keeps deferred releases safe on every exit path.
func (r *FlightRegistry) Release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, userID)
}

// Sweep evicts entries older than the given age and returns the number
// evicted. Entries only outlive their pipeline when a release was lost
// to a crash, so sweeping is a safety net, not a scheduler.
func (r *FlightRegistry) Sweep(olderThan time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, started := range r.inFlight {
		if r.clock.Since(started) > olderThan {
			delete(r.inFlight, userID)
			evicted++
		}
	}
	return evicted
}

// InFlight reports how many generations are currently recorded.
func (r *FlightRegistry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}
