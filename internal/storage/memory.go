package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	windows map[string]Window
	closed  bool
}

// NewMemory returns a process-local Store.
func NewMemory() Store {
	return &memoryStore{windows: map[string]Window{}}
}

func (m *memoryStore) AcquireSlot(ctx context.Context, key string, windowStart int64, limit int) (Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Window{}, false, ErrClosed
	}
	w := m.windows[key]
	if w.Start != windowStart {
		w = Window{Start: windowStart}
	}
	granted := w.Count < limit
	if granted {
		w.Count++
	}
	m.windows[key] = w
	return w, granted, nil
}

func (m *memoryStore) GetWindow(ctx context.Context, key string) (Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Window{}, false, ErrClosed
	}
	w, ok := m.windows[key]
	return w, ok, nil
}

func (m *memoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
