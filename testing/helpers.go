// Package testing provides test utilities for code that registers taps on
// tapz hooks.
//
// It includes mock taps, a recording interceptor, assertion helpers and a
// chaos tap for exercising failure paths.
//
// Example usage:
//
//	func TestMyHook(t *testing.T) {
//		mock := tapztesting.NewMockTap[string](t, "mock-tap").WithReturn("rewritten")
//
//		hook, _ := tapz.NewWaterfall[string]("rewrite", "source")
//		_ = hook.Tap(mock.Tap())
//		result, err := hook.Call(context.Background(), "input")
//
//		tapztesting.AssertCalled(t, mock, 1)
//		tapztesting.AssertCalledWith(t, mock, "input")
//	}
package testing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/tapz"
)

// MockTap provides a configurable tap for tests. It tracks calls, and can
// be told to replace, keep, fail or panic.
type MockTap[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	lastInput   T
	lastRest    []any
	returnVal   T
	replace     bool
	returnErr   error
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall[T]
	maxHistory  int
}

// MockCall represents a single call to the mock tap.
type MockCall[T any] struct {
	Input     T
	Rest      []any
	Timestamp time.Time
	Context   context.Context
}

// NewMockTap creates a mock tap. By default it keeps the running value.
func NewMockTap[T any](t *testing.T, name string) *MockTap[T] {
	return &MockTap[T]{
		t:          t,
		name:       name,
		maxHistory: 100, // Keep last 100 calls by default
	}
}

// WithReturn configures the mock to replace the running value with val.
func (m *MockTap[T]) WithReturn(val T) *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.replace = true
	m.returnErr = nil
	return m
}

// WithKeep configures the mock to leave the running value unchanged.
func (m *MockTap[T]) WithKeep() *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace = false
	m.returnErr = nil
	return m
}

// WithError configures the mock to fail with err.
func (m *MockTap[T]) WithError(err error) *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnErr = err
	return m
}

// WithDelay configures the mock to delay before returning.
func (m *MockTap[T]) WithDelay(d time.Duration) *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic configures the mock to panic with a specific message.
func (m *MockTap[T]) WithPanic(msg string) *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize configures how many calls to keep in history.
// Set to 0 to disable history tracking.
func (m *MockTap[T]) WithHistorySize(size int) *MockTap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name returns the tap name.
func (m *MockTap[T]) Name() tapz.Name {
	return m.name
}

// Tap returns a tapz.Tap backed by the mock.
func (m *MockTap[T]) Tap() tapz.Tap[T] {
	return tapz.NewTap(m.name, m.Run)
}

// Run implements tapz.TapFunc. It records the call and returns the
// configured outcome, potentially after a delay or panic.
func (m *MockTap[T]) Run(ctx context.Context, current T, rest []any) (tapz.Result[T], error) {
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = current
	m.lastRest = rest
	if m.maxHistory > 0 {
		m.callHistory = append(m.callHistory, MockCall[T]{
			Input:     current,
			Rest:      rest,
			Timestamp: time.Now(),
			Context:   ctx,
		})
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:] // Remove oldest
		}
	}

	delay := m.delay
	returnVal := m.returnVal
	replace := m.replace
	returnErr := m.returnErr
	panicMsg := m.panicMsg
	m.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return tapz.Keep[T](), ctx.Err()
		}
	}

	if returnErr != nil {
		return tapz.Keep[T](), returnErr
	}
	if replace {
		return tapz.Replace(returnVal), nil
	}
	return tapz.Keep[T](), nil
}

// CallCount returns the number of times the tap has run.
func (m *MockTap[T]) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastInput returns the running value from the most recent call.
func (m *MockTap[T]) LastInput() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// LastRest returns the remaining arguments from the most recent call.
func (m *MockTap[T]) LastRest() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRest
}

// CallHistory returns a copy of all recorded calls.
func (m *MockTap[T]) CallHistory() []MockCall[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall[T], len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking.
func (m *MockTap[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastInput = *new(T)
	m.lastRest = nil
	m.callHistory = nil
}

// RecordingInterceptor builds interceptors that record what they see.
type RecordingInterceptor[T any] struct {
	name       string
	mu         sync.Mutex
	calls      []T
	transforms []tapz.Name
	registered []tapz.Name
}

// NewRecordingInterceptor creates a recording interceptor.
func NewRecordingInterceptor[T any](name string) *RecordingInterceptor[T] {
	return &RecordingInterceptor[T]{name: name}
}

// Interceptor returns a tapz.Interceptor with all three hooks set. None of
// them alter the invocation.
func (r *RecordingInterceptor[T]) Interceptor() tapz.Interceptor[T] {
	return tapz.Interceptor[T]{
		Name: r.name,
		Call: func(_ context.Context, seed T, _ []any) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, seed)
			return nil
		},
		Tap: func(_ context.Context, tap tapz.Tap[T]) (tapz.Tap[T], error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.transforms = append(r.transforms, tap.Name())
			return tap, nil
		},
		Register: func(tap tapz.Tap[T]) (tapz.Tap[T], error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.registered = append(r.registered, tap.Name())
			return tap, nil
		},
	}
}

// Calls returns the seeds observed by the call hook.
func (r *RecordingInterceptor[T]) Calls() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.calls...)
}

// Transforms returns the tap names seen by the tap hook, in order.
func (r *RecordingInterceptor[T]) Transforms() []tapz.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tapz.Name(nil), r.transforms...)
}

// Registered returns the tap names seen by the register hook, in order.
func (r *RecordingInterceptor[T]) Registered() []tapz.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tapz.Name(nil), r.registered...)
}

// Assertion Helpers

// AssertCalled verifies that a mock tap ran exactly n times.
func AssertCalled[T any](t *testing.T, mock *MockTap[T], expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock tap %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotCalled verifies that a mock tap never ran.
func AssertNotCalled[T any](t *testing.T, mock *MockTap[T]) {
	t.Helper()
	AssertCalled(t, mock, 0)
}

// AssertCalledWith verifies the running value the mock tap last saw.
func AssertCalledWith[T comparable](t *testing.T, mock *MockTap[T], expectedInput T) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock tap %s to be called with %v, but it was never called",
			mock.name, expectedInput)
		return
	}
	if actual := mock.LastInput(); actual != expectedInput {
		t.Errorf("expected mock tap %s to be called with %v, but was called with %v",
			mock.name, expectedInput, actual)
	}
}

// ChaosTap wraps a tap and randomly injects failures and panics.
type ChaosTap[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	name        string
	wrapped     tapz.Tap[T]
	failureRate float64
	panicRate   float64
	rng         *mathrand.Rand
	mu          sync.Mutex
	totalCalls  int64
	failedCalls int64
	panicCalls  int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	FailureRate float64 // Probability of returning an error (0.0 to 1.0)
	PanicRate   float64 // Probability of panicking (0.0 to 1.0)
	Seed        int64   // Random seed for reproducible chaos (0 for random seed)
}

// NewChaosTap creates a chaos tap that wraps another tap.
func NewChaosTap[T any](wrapped tapz.Tap[T], config ChaosConfig) *ChaosTap[T] {
	seed := config.Seed
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			seed = time.Now().UnixNano()
		} else {
			for _, b := range seedBytes {
				seed = seed<<8 | int64(b)
			}
		}
	}

	return &ChaosTap[T]{
		name:        "chaos:" + wrapped.Name(),
		wrapped:     wrapped,
		failureRate: config.FailureRate,
		panicRate:   config.PanicRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: Test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Tap returns a tapz.Tap running the chaos wrapper at the wrapped tap's stage.
func (c *ChaosTap[T]) Tap() tapz.Tap[T] {
	return tapz.NewTap(c.name, c.Run).WithStage(c.wrapped.Stage())
}

// Run implements tapz.TapFunc with chaos injection.
func (c *ChaosTap[T]) Run(ctx context.Context, current T, rest []any) (tapz.Result[T], error) {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	induce := c.rng.Float64() < c.panicRate
	injectFailure := c.rng.Float64() < c.failureRate
	c.mu.Unlock()

	if induce {
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos tap induced panic")
	}

	res, err := c.wrapped.Run(ctx, current, rest)
	if injectFailure && err == nil {
		atomic.AddInt64(&c.failedCalls, 1)
		return tapz.Keep[T](), errors.New("chaos tap induced failure")
	}
	return res, err
}

// Stats returns statistics about chaos injection.
func (c *ChaosTap[T]) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:  atomic.LoadInt64(&c.totalCalls),
		FailedCalls: atomic.LoadInt64(&c.failedCalls),
		PanicCalls:  atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls  int64
	FailedCalls int64
	PanicCalls  int64
}

// FailureRate returns the observed failure rate.
func (s ChaosStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// PanicRate returns the observed panic rate.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d (%.1f%%), Panics: %d (%.1f%%)}",
		s.TotalCalls, s.FailedCalls, s.FailureRate()*100,
		s.PanicCalls, s.PanicRate()*100)
}

// Helper Functions

// WaitForCalls waits for a mock tap to run at least n times, with a
// timeout. Returns true if the expected calls were reached.
func WaitForCalls[T any](mock *MockTap[T], expectedCalls int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if mock.CallCount() >= expectedCalls {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// ParallelTest runs testFunc on the given number of goroutines and waits
// for all of them.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}
