// Package clock provides the injectable wall-time source every TTL and
// freshness check in this broker is built on, following the clockwork
// pattern used for fake-clock testing in gravitational-teleport-plugins.
package clock

import "github.com/jonboulle/clockwork"

// Clock is the monotonic wall-time source used throughout the broker.
// It is a thin alias over clockwork.Clock so real code takes clock.Clock
// and tests substitute clockwork.NewFakeClock() without a bespoke interface.
type Clock = clockwork.Clock

// New returns the real, system-backed clock.
func New() Clock {
	return clockwork.NewRealClock()
}
