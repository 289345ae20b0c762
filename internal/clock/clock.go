// Package clock supplies the time source used for journal timestamps and
// health reports.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that always returns a fixed time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// Stepper is a Clock that advances by Step on every call, starting at Start.
type Stepper struct {
	mu    sync.Mutex
	Start time.Time
	Step  time.Duration
	calls int
}

// Now returns Start plus Step for each earlier call.
func (s *Stepper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.Start.Add(time.Duration(s.calls) * s.Step)
	s.calls++
	return t
}
