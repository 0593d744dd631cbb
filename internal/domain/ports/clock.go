package ports

import "time"

// Clock abstracts wall-clock access so lock aging and retry backoff can
// be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

// SystemClock is the Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (SystemClock) Sleep(d time.Duration)           { time.Sleep(d) }
