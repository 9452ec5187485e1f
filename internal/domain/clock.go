package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests and fixture generation inject a
// fake for deterministic run timestamps.
var clock = clockwork.NewRealClock()

// Clock returns the active time source.
func Clock() clockwork.Clock { return clock }

// SetClock swaps the time source for run stamping. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
