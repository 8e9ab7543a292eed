// Package backoff rate-limits and retries calls into an LLM transport.
// It is adapted from the teacher's internal/ratelimit package: the
// token-bucket limiter is kept, but the semaphore/per-model concurrency
// limiting is dropped since the Repair Loop Engine drives exactly one
// generation at a time — there is no fan-out of concurrent model calls
// to bound.
package backoff

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
)

// ErrContextCanceled is returned when the context is canceled while
// waiting for a rate-limit token or a retry backoff sleep.
var ErrContextCanceled = errors.New("context canceled while waiting to retry")

// Limiter rate-limits calls to a single model using a token-bucket
// algorithm, then retries on a transport-level error up to maxRetries
// times with a fixed backoff between attempts.
type Limiter struct {
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// New creates a Limiter. If ratePerMin is <= 0 the limiter imposes no
// rate limit at all — calls still retry on transport errors.
func New(ratePerMin, maxBurst, maxRetries int, backoffDelay time.Duration) *Limiter {
	var limiter *rate.Limiter
	if ratePerMin > 0 {
		if maxBurst <= 0 {
			maxBurst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), maxBurst)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoffDelay <= 0 {
		backoffDelay = time.Second
	}
	return &Limiter{limiter: limiter, maxRetries: maxRetries, backoff: backoffDelay}
}

// Do runs call, waiting for a rate-limit token first. If call fails
// with an error categorized as aprerr.KindLLMTransportError, Do sleeps
// for the configured backoff and retries, up to maxRetries times. Any
// other error kind, or a context cancellation, is returned immediately.
func (l *Limiter) Do(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return ErrContextCanceled
			}
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if aprerr.KindOf(lastErr) != aprerr.KindLLMTransportError {
			return lastErr
		}
		if attempt == l.maxRetries {
			break
		}

		select {
		case <-time.After(l.backoff):
		case <-ctx.Done():
			return ErrContextCanceled
		}
	}
	return lastErr
}
