package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	retries, err := Retry(context.Background(), 3, time.Millisecond, 0, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retries != 0 || calls != 1 {
		t.Fatalf("retries=%d calls=%d", retries, calls)
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	retries, err := Retry(context.Background(), 3, time.Millisecond, 0, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retries != 2 || calls != 3 {
		t.Fatalf("retries=%d calls=%d", retries, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	sentinel := errors.New("down")
	calls := 0
	retries, err := Retry(context.Background(), 3, time.Millisecond, 0, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Fatalf("retries=%d calls=%d", retries, calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, 5, 50*time.Millisecond, 0, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatalf("expected error after cancel")
	}
	if calls != 1 {
		t.Fatalf("expected no further attempts after cancel, got %d", calls)
	}
}

func TestRetryAttemptTimeout(t *testing.T) {
	_, err := Retry(context.Background(), 1, time.Millisecond, 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
