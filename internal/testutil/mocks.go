package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MockClock implements the Clock interface used by the limiter packages with
// controllable time. Waits requested through After advance the clock
// immediately instead of sleeping, so pacing, backoff, and cooldown logic can
// be tested without real delays.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	waited  []time.Duration
	blockCh chan struct{}
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After records the wait, advances the mock clock by d, and returns a channel
// that is ready immediately.
func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.waited = append(m.waited, d)
	now := m.now
	m.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Waited returns a copy of every duration passed to After, in order.
func (m *MockClock) Waited() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.waited))
	copy(out, m.waited)
	return out
}

// TotalWaited returns the sum of all durations passed to After.
func (m *MockClock) TotalWaited() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, d := range m.waited {
		total += d
	}
	return total
}

// RoundTripFunc adapts a function to http.RoundTripper for stubbing vendor
// API responses in client tests.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NewStubClient creates an *http.Client whose transport is the given function.
func NewStubClient(fn RoundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// JSONResponse builds an *http.Response with the given status and JSON body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// HTMLResponse builds an *http.Response with the given status and HTML body.
func HTMLResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
