package config

import (
	"time"

	"sheet_notify/internal/retry"
)

type ResilienceConfig struct {
	SheetRead   retry.Config
	SheetAppend retry.Config
	StateWrite  retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    10 * time.Second,
	},
	SheetAppend: retry.Config{
		MaxRetries: 1,
		BaseDelay:  1 * time.Second,
		MaxDelay:   5 * time.Second,
		Timeout:    10 * time.Second,
	},
	StateWrite: retry.Config{
		MaxRetries: 2,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Timeout:    2 * time.Second,
	},
}

// FastResilienceConfig keeps tests and the one-shot CLI commands from waiting on backoff.
var FastResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
	},
	SheetAppend: retry.Config{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
	},
	StateWrite: retry.Config{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    2 * time.Second,
	},
}
