package exec

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/kvfluent/client-go/pkg/kverrors"
)

// retryPolicy mirrors the teacher's exponential-backoff-with-full-jitter
// policy (src/driver/retry.go's RetryPolicy/CalculateDelay), parameterized
// by the settings-resolved attempt count instead of a fixed default, and
// gated by kverrors.AsRetriable instead of the teacher's Neo4j-specific
// classification.
type retryPolicy struct {
	maxAttempts            int
	baseDelay              time.Duration
	maxDelay               time.Duration
	multiplier             float64
	jitterFactor           float64
	allowRetryableConflict bool
}

func defaultRetryPolicy(maxAttempts int, allowRetryableConflict bool) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retryPolicy{
		maxAttempts:            maxAttempts,
		baseDelay:              10 * time.Millisecond,
		maxDelay:               2 * time.Second,
		multiplier:             2.0,
		jitterFactor:           1.0,
		allowRetryableConflict: allowRetryableConflict,
	}
}

// calculateDelay computes the attempt-th backoff with full jitter, exactly
// as the teacher's RetryPolicy.CalculateDelay does.
func (p retryPolicy) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	exponent := float64(attempt - 1)
	baseExp := float64(p.baseDelay) * math.Pow(p.multiplier, exponent)
	capped := math.Min(baseExp, float64(p.maxDelay))

	jitter := math.Max(0, math.Min(1, p.jitterFactor))
	jitterBlend := 1.0 - jitter + rand.Float64()*jitter
	return time.Duration(capped * jitterBlend)
}

// retry runs fn up to p.maxAttempts times (the total attempt count,
// including the first), retrying only errors kverrors.AsRetriable approves
// for this call's write kind, backing off between attempts and honoring
// ctx cancellation at every suspension point. Errors that are not
// retriable, or that survive every attempt, are returned as-is.
// onRetry, if non-nil, is called once per attempt beyond the first --
// callers use it to feed instruments.recordRetry.
func retry[T any](ctx context.Context, p retryPolicy, onRetry func(), fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !kverrors.AsRetriable(err, p.allowRetryableConflict) {
			return zero, err
		}
		if attempt >= p.maxAttempts {
			break
		}
		if onRetry != nil {
			onRetry()
		}

		delay := p.calculateDelay(attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
