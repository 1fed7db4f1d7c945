package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/deckfetch/models"
)

// testPolicy returns a policy whose sleeps are recorded instead of slept.
func testPolicy(maxAttempts int) (*retryPolicy, *[]time.Duration) {
	var slept []time.Duration
	p := &retryPolicy{
		maxAttempts:  maxAttempts,
		navBase:      time.Second,
		captureDelay: time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	return p, &slept
}

func transientErr() error {
	return models.NewRetrievalError(models.ErrCodePageLoad, "load failed", nil)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy, slept := testPolicy(3)

	calls := 0
	err := policy.do(context.Background(), opNavigation, func() error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do() failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// Navigation backoff doubles: 1s after the first failure, 2s after the second.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetryNavigationBackoffIsExponential(t *testing.T) {
	policy, slept := testPolicy(4)

	_ = policy.do(context.Background(), opNavigation, func() error {
		return transientErr()
	})

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetryCaptureBackoffIsFlat(t *testing.T) {
	policy, slept := testPolicy(3)

	_ = policy.do(context.Background(), opCapture, func() error {
		return models.NewRetrievalError(models.ErrCodeCaptureTimeout, "slow render", nil)
	})

	want := []time.Duration{time.Second, time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetryExhaustionSurfacesTerminalError(t *testing.T) {
	policy, _ := testPolicy(3)

	calls := 0
	err := policy.do(context.Background(), opNavigation, func() error {
		calls++
		return transientErr()
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if code := models.CodeOf(err); code != models.ErrCodeScrape {
		t.Errorf("error code = %q, want %q", code, models.ErrCodeScrape)
	}
	// An exhausted operation must not look retryable to anyone upstream.
	if models.IsTransient(err) {
		t.Error("exhaustion result reports transient")
	}

	// The transient cause stays in the chain for diagnosis.
	var outer *models.RetrievalError
	if !errors.As(err, &outer) {
		t.Fatalf("error type = %T", err)
	}
	var inner *models.RetrievalError
	if !errors.As(outer.Err, &inner) || inner.Code != models.ErrCodePageLoad {
		t.Errorf("wrapped cause = %v, want %s", outer.Err, models.ErrCodePageLoad)
	}
}

func TestRetryTerminalErrorFailsImmediately(t *testing.T) {
	policy, slept := testPolicy(3)

	calls := 0
	err := policy.do(context.Background(), opNavigation, func() error {
		calls++
		return models.NewRetrievalError(models.ErrCodeAuthRejected, "bad passcode", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (terminal errors must not be retried)", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no sleeps", *slept)
	}
}

func TestRetryCanceledSleepStopsRetrying(t *testing.T) {
	policy := &retryPolicy{
		maxAttempts:  3,
		navBase:      time.Second,
		captureDelay: time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
	}

	calls := 0
	err := policy.do(context.Background(), opNavigation, func() error {
		calls++
		return transientErr()
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation during backoff must stop retries)", calls)
	}
}

func TestSleepCtxReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepCtx() = %v, want context.Canceled", err)
	}
}
