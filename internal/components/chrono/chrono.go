package chrono

import "time"

// API is where components get the current time from.
//
// note: fault injection point
type API interface {
	Now() time.Time
}

// StandardImpl reads the system clock in UTC.
type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant, it is meant for tests.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
