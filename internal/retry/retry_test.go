package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// Scaled-down versions of the sheet read and state write budgets.
var (
	sheetRead = Config{
		MaxRetries: 2,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
		Timeout:    time.Second,
	}
	stateWrite = Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    200 * time.Millisecond,
	}
	oneShot = Config{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    time.Second,
	}
)

func TestWithRetryRecoversFromTransientReadError(t *testing.T) {
	calls := 0
	rows, err := WithRetry(context.Background(), sheetRead, func(ctx context.Context) ([][]interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("503 backend error")
		}
		return [][]interface{}{{"ENABLE_NEW_RECORDS", true}}, nil
	})
	if err != nil {
		t.Fatalf("Expected read to succeed on retry, got %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "ENABLE_NEW_RECORDS" {
		t.Errorf("Unexpected rows %v", rows)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		calls int
	}{
		{"sheet read", sheetRead, 3},
		{"state write", stateWrite, 3},
		{"one shot", oneShot, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := errors.New("database is locked")
			calls := 0
			_, err := WithRetry(context.Background(), tt.cfg, func(ctx context.Context) (bool, error) {
				calls++
				return false, cause
			})
			if !errors.Is(err, cause) {
				t.Errorf("Expected wrapped cause, got %v", err)
			}
			if calls != tt.calls {
				t.Errorf("Expected %d calls, got %d", tt.calls, calls)
			}
		})
	}
}

func TestWithRetryAttemptTimeout(t *testing.T) {
	cfg := stateWrite
	cfg.MaxRetries = 1
	cfg.Timeout = 20 * time.Millisecond

	calls := 0
	start := time.Now()
	_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("Expected attempt count in error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected each attempt to time out separately, got %d calls", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected per-attempt timeouts to bound the call, took %v", elapsed)
	}
}

func TestWithRetryStopsWhenCallerCancels(t *testing.T) {
	cfg := sheetRead
	cfg.MaxRetries = 5
	cfg.BaseDelay = 50 * time.Millisecond
	cfg.MaxDelay = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	_, err := WithRetry(ctx, cfg, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no attempt after cancellation, got %d calls", calls)
	}
}

func TestWithRetryPermanentErrorStopsImmediately(t *testing.T) {
	missing := errors.New("sheet not found")
	calls := 0
	_, err := WithRetry(context.Background(), sheetRead, func(ctx context.Context) ([][]interface{}, error) {
		calls++
		return nil, Permanent(missing)
	})
	if !errors.Is(err, missing) {
		t.Errorf("Expected sentinel error, got %v", err)
	}
	if IsPermanent(err) {
		t.Error("Expected permanent wrapper to be removed from returned error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if Permanent(nil) != nil {
		t.Error("Expected Permanent(nil) to be nil")
	}
}

func TestBackoffDelayStaysWithinBudget(t *testing.T) {
	base := 500 * time.Millisecond
	limit := 5 * time.Second

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 250 * time.Millisecond, 750 * time.Millisecond},
		{2, time.Second, 3 * time.Second},
		{4, 2500 * time.Millisecond, limit},
		{64, 2500 * time.Millisecond, limit},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := calculateBackoffDelay(tt.attempt, base, limit)
			if got < tt.min || got > tt.max {
				t.Errorf("calculateBackoffDelay(%d) = %v, want between %v and %v", tt.attempt, got, tt.min, tt.max)
			}
		}
	}
}
