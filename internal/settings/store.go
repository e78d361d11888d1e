package settings

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"sheet_notify/internal/config"
	"sheet_notify/internal/sheets"
	"sheet_notify/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store serves settings from the configuration sheet, merged over Defaults, with a
// TTL cache. It also owns the notification rate limiter and pacing delay.
type Store struct {
	reader    sheets.RangeReader
	sheetName string
	defaults  map[string]interface{}
	counters  storage.Store

	now        func() time.Time
	sleep      func(time.Duration)
	ttl        time.Duration
	resilience config.ResilienceConfig

	mu       sync.Mutex
	cache    map[string]interface{}
	cachedAt time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSleep replaces time.Sleep for the pacing delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Store) { s.sleep = sleep }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithResilience(r config.ResilienceConfig) Option {
	return func(s *Store) { s.resilience = r }
}

func New(reader sheets.RangeReader, sheetName string, counters storage.Store, opts ...Option) *Store {
	if sheetName == "" {
		sheetName = DefaultConfigSheet
	}
	s := &Store{
		reader:     reader,
		sheetName:  sheetName,
		defaults:   Defaults(sheetName),
		counters:   counters,
		now:        time.Now,
		sleep:      time.Sleep,
		ttl:        CacheTTL,
		resilience: config.DefaultResilienceConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SheetName is the name of the configuration sheet.
func (s *Store) SheetName() string {
	return s.sheetName
}

// Get returns the value for key, or def when neither the sheet nor the defaults know it.
func (s *Store) Get(ctx context.Context, key string, def interface{}) interface{} {
	cache := s.current(ctx)
	if v, ok := cache[key]; ok {
		return v
	}
	return def
}

// Snapshot returns a copy of the effective settings.
func (s *Store) Snapshot(ctx context.Context) map[string]interface{} {
	return maps.Clone(s.current(ctx))
}

// Invalidate drops the cache so the next read goes to the sheet.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
	log.Debug().Msg("Settings cache invalidated")
}

func (s *Store) Bool(ctx context.Context, key string) bool {
	switch v := s.Get(ctx, key, nil).(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	b, _ := s.defaults[key].(bool)
	return b
}

func (s *Store) Number(ctx context.Context, key string) float64 {
	switch v := s.Get(ctx, key, nil).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	f, _ := s.defaults[key].(float64)
	return f
}

func (s *Store) String(ctx context.Context, key string) string {
	return sheets.CellText(s.Get(ctx, key, s.defaults[key]))
}

// DebugLog returns an event that is written at info level when ENABLE_DEBUG_LOGGING is
// on, and at debug level otherwise.
func (s *Store) DebugLog(ctx context.Context) *zerolog.Event {
	if s.Bool(ctx, KeyDebugLogging) {
		return log.Info().Bool("debug", true)
	}
	return log.Debug()
}

// current returns the cached map, refreshing it when empty or expired.
func (s *Store) current(ctx context.Context) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return s.cache
	}
	s.refreshLocked(ctx)
	return s.cache
}

func (s *Store) refreshLocked(ctx context.Context) {
	merged := maps.Clone(s.defaults)

	rows, err := s.reader.ReadRange(ctx, sheets.A1Range(s.sheetName, "A:B"))
	if errors.Is(err, sheets.ErrSheetNotFound) {
		log.Info().Str("sheet", s.sheetName).Msg("Configuration sheet not found, using defaults")
		s.cache = merged
		s.cachedAt = s.now()
		return
	}
	if err != nil {
		// Leave the cache unstamped so the next call tries the sheet again.
		log.Error().Err(err).Str("sheet", s.sheetName).Msg("Failed to refresh settings, using defaults")
		s.cache = merged
		s.cachedAt = time.Time{}
		return
	}

	for _, row := range parseRows(rows) {
		merged[row.key] = row.value
	}
	s.cache = merged
	s.cachedAt = s.now()

	log.Debug().
		Str("sheet", s.sheetName).
		Int("rows", len(rows)).
		Int("settings", len(merged)).
		Msg("Settings cache refreshed")
}

type settingRow struct {
	key   string
	value interface{}
}

// parseRows reads key/value pairs from the two-column sheet. Later rows win.
func parseRows(rows [][]interface{}) []settingRow {
	var out []settingRow
	for _, row := range rows {
		key := strings.TrimSpace(sheets.CellText(sheets.CellAt(row, 0)))
		if key == "" {
			continue
		}
		out = append(out, settingRow{key: key, value: coerce(sheets.CellAt(row, 1))})
	}
	return out
}

// coerce turns boolean-like text into bool and passes everything else through.
func coerce(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		switch x {
		case "TRUE", "true":
			return true
		case "FALSE", "false":
			return false
		}
	case nil:
		return ""
	}
	return v
}
