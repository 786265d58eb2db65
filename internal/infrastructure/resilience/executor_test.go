package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestRunRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
		BreakerEnabled: false,
	}, nil)

	attempts := 0
	errTransient := errors.New("transient")
	err := exec.Run(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, func(err error) Classification {
		return Classification{
			Retryable:     errors.Is(err, errTransient),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRunDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
		BreakerEnabled: false,
	}, nil)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Run(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) Classification {
		return Classification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRunOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:         1,
		InitialBackoff:      1 * time.Millisecond,
		MaxBackoff:          1 * time.Millisecond,
		BackoffFactor:       2,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  50 * time.Millisecond,
		BreakerProbeCalls:   1,
	}, nil)

	errBoom := errors.New("boom")
	classify := func(error) Classification {
		return Classification{Retryable: false, RecordFailure: true}
	}

	for i := range 2 {
		err := exec.Run(context.Background(), "op", func(context.Context) error {
			return errBoom
		}, classify)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Run(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classify)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		BackoffFactor:  2,
		BreakerEnabled: false,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errTransient := errors.New("transient")
	attempts := 0
	err := exec.Run(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errTransient
	}, func(error) Classification {
		return Classification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error after cancellation, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}
