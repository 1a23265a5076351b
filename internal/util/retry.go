package util

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls RetryWithContext. Zero values mean a single attempt
// with no delay, retrying every error.
type RetryPolicy struct {
	MaxTries int
	Delay    time.Duration
	MaxDelay time.Duration
	// Retryable reports whether err should be attempted again.
	Retryable func(err error) bool
}

// Retry calls fn up to maxTries times until it returns a nil error.
// If maxTries <= 0, it defaults to 1. Returns the last error if all attempts fail.
func Retry[T any](maxTries int, fn func() (T, error)) (T, error) {
	return RetryWithContext(context.Background(), RetryPolicy{MaxTries: maxTries}, func(context.Context) (T, error) {
		return fn()
	})
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithContext calls fn until it succeeds, the policy gives up or ctx is done.
// The delay doubles after each failed attempt, capped at MaxDelay.
// Context cancellation is never retried.
func RetryWithContext[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	maxTries := policy.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}
	delay := policy.Delay

	var lastErr error
	var zero T
	for i := range maxTries {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if i == maxTries-1 || delay <= 0 {
			continue
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return zero, lastErr
}
