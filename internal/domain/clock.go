package domain

import "time"

// Clock is the single time source for the core services. Injecting it keeps
// scheduling and lifecycle logic deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now.
func NewRealClock() Clock { return realClock{} }
