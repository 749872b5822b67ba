// Package resilience wraps calls to the external place-search and model
// APIs with retry, circuit breaking and concurrency limiting. Both APIs
// are quota-billed, so the breaker trips early rather than burning a
// tenant's quota against a failing upstream.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// maxBackoff caps the exponential growth so a high retry count never
// stalls a request for minutes.
const maxBackoff = 10 * time.Second

// Config holds the retry and concurrency parameters, populated from
// server config.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs fn up to MaxRetries+1 times with exponential
// backoff and jitter between attempts. Context cancellation aborts both
// the attempt loop and any in-flight wait.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffFor(attempt, cfg.InitialBackoff)):
		}
	}
	return lastErr
}

func backoffFor(attempt int, initial time.Duration) time.Duration {
	backoff := initial << attempt
	if backoff <= 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
	return backoff + jitter
}

// NewCircuitBreaker creates a breaker for one upstream API. It trips at a
// 60% failure ratio over at least 5 requests, lets 3 trial requests
// through when half-open, and re-opens after 10s.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead bounds how many detail-enrichment calls run at once.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead admitting maxConcurrency callers.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{slots: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot frees up or ctx is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot.
func (b *Bulkhead) Release() {
	<-b.slots
}
