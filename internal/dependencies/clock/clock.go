package clock

import "time"

// Precision is the resolution timestamps are kept at. Postgres stores
// microseconds, so anything finer would not survive a round trip.
const Precision = time.Microsecond

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current UTC time at storage precision
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}
