package settings

import (
	"context"
	"fmt"
	"time"

	"sheet_notify/internal/retry"
	"sheet_notify/internal/storage"
)

// CheckRateLimit allows at most MAX_NOTIFICATIONS_PER_MINUTE notifications per wall-clock
// minute. A granted call consumes a slot; a rejected call leaves the counter untouched.
// The counter lives in durable storage and is updated atomically.
func (s *Store) CheckRateLimit(ctx context.Context) (bool, error) {
	limit := int(s.Number(ctx, KeyMaxPerMinute))
	window := minuteWindow(s.now())

	res, err := retry.WithRetry(ctx, s.resilience.StateWrite, func(ctx context.Context) (slot, error) {
		w, granted, err := s.counters.AcquireSlot(ctx, rateLimitKey, window, limit)
		return slot{window: w, granted: granted}, err
	})
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	w, granted := res.window, res.granted

	s.DebugLog(ctx).
		Int64("window", w.Start).
		Int("count", w.Count).
		Int("max", limit).
		Bool("allowed", granted).
		Msg("Rate limit checked")
	return granted, nil
}

type slot struct {
	window  storage.Window
	granted bool
}

// Delay blocks for NOTIFICATION_DELAY_MS. It is a pacing aid, not a cancellable wait.
func (s *Store) Delay(ctx context.Context) {
	ms := s.Number(ctx, KeyNotificationDelayMS)
	if ms <= 0 {
		return
	}
	d := time.Duration(ms * float64(time.Millisecond))
	s.sleep(d)
	s.DebugLog(ctx).Dur("delay", d).Msg("Notification delay applied")
}

// minuteWindow returns floor(t / 60s) as a unix minute.
func minuteWindow(t time.Time) int64 {
	sec := t.Unix()
	if sec < 0 && sec%60 != 0 {
		return sec/60 - 1
	}
	return sec / 60
}
