package mock

import (
	"sync"
	"time"
)

// Clock is the time source used by the reconciler for durations.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock implements Clock with a controllable time value.
//
// When Step is non-zero every call to Now advances the clock by Step after
// returning, so consecutive readings are Step apart.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewMockClock creates a mock clock initialized to t, or to the current time
// when t is zero.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Now()
	}
	return &MockClock{current: t}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.current
	m.current = m.current.Add(m.step)
	return now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

// Set sets the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Step makes every Now call advance the clock by d.
func (m *MockClock) Step(d time.Duration) *MockClock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = d
	return m
}
