package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryWithContext(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 42 {
			t.Errorf("got %d, want 42", got)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		wantErr := errors.New("persistent")
		_, err := RetryWithContext(context.Background(), 2, func(ctx context.Context) (int, error) {
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("err = %v, want %v", err, wantErr)
		}
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_, err := RetryWithContext(ctx, 5, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("should not retry")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})

	t.Run("cancellation mid-flight is not retried", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 5, func(ctx context.Context) error {
			calls++
			return context.DeadlineExceeded
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("non-positive tries defaults to one", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 0, func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
