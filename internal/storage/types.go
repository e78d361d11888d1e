package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrClosed        = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file at Path
//   - "memory": process-local, lost on restart
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Window is the persisted state of one rate-limit counter.
type Window struct {
	Start int64 // window identifier, e.g. unix minute
	Count int
}

// Store is the persistence API used by the rate limiter.
type Store interface {
	// AcquireSlot moves the counter for key to windowStart (resetting the count when the
	// window changed) and then increments it if the count is below limit. The whole
	// read-modify-write is atomic. It returns the resulting window and whether a slot
	// was granted.
	AcquireSlot(ctx context.Context, key string, windowStart int64, limit int) (Window, bool, error)
	GetWindow(ctx context.Context, key string) (Window, bool, error)
	Close() error
}
