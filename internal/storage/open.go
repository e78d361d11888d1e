package storage

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Open initializes the configured store.
func Open(cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		log.Debug().Str("path", cfg.Path).Msg("Opening sqlite state store")
		return openSQLite(cfg)
	case "memory":
		log.Warn().Msg("Using in-memory state store; rate-limit counters will not survive restarts")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
