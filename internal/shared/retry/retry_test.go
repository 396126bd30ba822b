package retry

import (
	"context"
	"errors"
	"testing"
)

var errTransient = errors.New("transient")

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(2, func() (string, error) {
		calls++
		return "", errTransient
	})

	if !errors.Is(err, errTransient) {
		t.Errorf("Expected transient error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestRetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := RetryIf(context.Background(), 5, func(err error) bool {
		return errors.Is(err, errTransient)
	}, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("Expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRetryWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 3, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected 0 calls, got %d", calls)
	}
}

func TestRetryZeroTriesDefaultsToOne(t *testing.T) {
	calls := 0
	_, _ = Retry(0, func() (int, error) {
		calls++
		return 0, errTransient
	})
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}
