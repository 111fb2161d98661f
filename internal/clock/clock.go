// Package clock abstracts the time source so services and tests agree on "now".
package clock

import "time"

// Clock yields the current time in UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the wall-clock implementation.
func NewSystemClock() Clock { return SystemClock{} }
