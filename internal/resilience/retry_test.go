package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
)

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New(errors.CodeEmbedUnavailable, "transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	retryErr := errors.New(errors.CodeEmbedUnavailable, "always fail")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return retryErr
	})

	if !stderrors.Is(err, retryErr) {
		t.Errorf("Retry() = %v, want %v", err, retryErr)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	nonRetryErr := errors.New(errors.CodeCaptureUnavailable, "monitor gone")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return nonRetryErr
	})

	if !stderrors.Is(err, nonRetryErr) {
		t.Errorf("Retry() = %v, want %v", err, nonRetryErr)
	}
	if calls != 1 { // Should not retry non-retryable errors
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, DefaultRetryConfig(), func() error {
		calls++
		return errors.New(errors.CodeEmbedUnavailable, "transient")
	})

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
