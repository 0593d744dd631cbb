package ports

import "time"

// FlightStore tracks in-flight generations per user identity. At most
// one entry exists per user; Acquire and Release bracket a generation
// and Sweep evicts entries an abandoned pipeline left behind.
type FlightStore interface {
	// Acquire records an in-flight generation for the user. It returns
	// false, along with the age of the existing entry, when one is
	// already held.
	Acquire(userID string) (ok bool, heldFor time.Duration)

	// Release removes the user's entry. Releasing an absent entry is a
	// no-op.
	Release(userID string)

	// Sweep removes entries older than the given age and returns how
	// many were evicted.
	Sweep(olderThan time.Duration) int
}
