package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetry(t *testing.T) {
	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		got, err := Retry(3, func() (int, error) {
			calls++
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 42 {
			t.Fatalf("unexpected result: got %d, want 42", got)
		}
		if calls != 1 {
			t.Fatalf("unexpected call count: got %d, want 1", calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		got, err := Retry(3, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Fatalf("unexpected result: got %q, want %q", got, "ok")
		}
		if calls != 3 {
			t.Fatalf("unexpected call count: got %d, want 3", calls)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		wantErr := errors.New("still broken")
		calls := 0
		_, err := Retry(2, func() (int, error) {
			calls++
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("unexpected error: got %v, want %v", err, wantErr)
		}
		if calls != 2 {
			t.Fatalf("unexpected call count: got %d, want 2", calls)
		}
	})

	t.Run("zero maxTries means one attempt", func(t *testing.T) {
		calls := 0
		_, _ = Retry(0, func() (int, error) {
			calls++
			return 0, errors.New("nope")
		})
		if calls != 1 {
			t.Fatalf("unexpected call count: got %d, want 1", calls)
		}
	})
}

func TestRetryWithContext(t *testing.T) {
	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := RetryWithContext(ctx, 3, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: got %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Fatalf("unexpected call count: got %d, want 0", calls)
		}
	})

	t.Run("does not retry cancellation errors from fn", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 3, func(context.Context) (int, error) {
			calls++
			return 0, context.DeadlineExceeded
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("unexpected error: got %v, want context.DeadlineExceeded", err)
		}
		if calls != 1 {
			t.Fatalf("unexpected call count: got %d, want 1", calls)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 {
			t.Fatalf("unexpected result: got %d, want 7", got)
		}
	})
}
