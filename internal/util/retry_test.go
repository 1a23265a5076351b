package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result, err := Retry(3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 99, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result != 99 {
		t.Fatalf("expected 99, got %d", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_PersistentFailure(t *testing.T) {
	calls := 0
	_, err := Retry(3, func() (int, error) {
		calls++
		return 0, errors.New("persistent")
	})
	if err == nil || err.Error() != "persistent" {
		t.Fatalf("expected persistent error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_MaxTriesZeroOrNegative(t *testing.T) {
	calls := 0
	_, _ = Retry(0, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call for maxTries=0, got %d", calls)
	}
}

func TestRetryWithContext_NonRetryableStops(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := RetryWithContext(context.Background(), RetryPolicy{
		MaxTries:  5,
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
	}, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithContext_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := RetryWithContext(ctx, RetryPolicy{MaxTries: 5, Delay: time.Second}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithContext_DeadlineNotRetried(t *testing.T) {
	calls := 0
	_, err := RetryWithContext(context.Background(), RetryPolicy{MaxTries: 3}, func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryErrWithContext_BackoffDoubles(t *testing.T) {
	var stamps []time.Time
	err := RetryErrWithContext(context.Background(), RetryPolicy{
		MaxTries: 3,
		Delay:    5 * time.Millisecond,
		MaxDelay: 20 * time.Millisecond,
	}, func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("again")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if len(stamps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(stamps))
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 10*time.Millisecond {
		t.Fatalf("expected second delay to double to >=10ms, got %v", gap)
	}
}
