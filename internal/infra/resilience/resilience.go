// Package resilience provides fault-tolerance patterns:
// circuit breaker and bulkhead. Nothing in here retries.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings holds circuit breaker parameters.
type BreakerSettings struct {
	MaxRequests uint32        // half-open: requests allowed through
	Interval    time.Duration // closed: reset counters every Interval
	Timeout     time.Duration // open -> half-open after Timeout

	// IsSuccessful decides whether an error counts against the breaker.
	// Nil counts every non-nil error as a failure.
	IsSuccessful  func(err error) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerSettings returns the defaults used when nothing is configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
	}
}

// NewCircuitBreaker creates a circuit breaker that trips once at least 5
// requests were seen and 60% of them failed.
func NewCircuitBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		IsSuccessful:  s.IsSuccessful,
		OnStateChange: s.OnStateChange,
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking. It reports false when the
// bulkhead is full.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// InFlight reports how many slots are taken.
func (b *Bulkhead) InFlight() int {
	return len(b.sem)
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
