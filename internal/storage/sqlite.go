package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	// One connection serialises writers, which makes each AcquireSlot transaction atomic
	// with respect to the others in this process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Str("path", path).Msg("Failed to apply sqlite pragma")
		}
	}

	st := &sqliteStore{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to migrate state db: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AcquireSlot(ctx context.Context, key string, windowStart int64, limit int) (Window, bool, error) {
	if s == nil || s.db == nil {
		return Window{}, false, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Window{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var w Window
	err = tx.QueryRowContext(ctx, `SELECT window_start, count FROM rate_windows WHERE key = ?`, key).Scan(&w.Start, &w.Count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Window{}, false, fmt.Errorf("failed to read window: %w", err)
	}

	rolled := w.Start != windowStart
	if rolled {
		w = Window{Start: windowStart}
	}
	granted := w.Count < limit
	if granted {
		w.Count++
	}
	if !granted && !rolled {
		return w, false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rate_windows(key, window_start, count, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET window_start=excluded.window_start, count=excluded.count, updated_at=excluded.updated_at`,
		key, w.Start, w.Count, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Window{}, false, fmt.Errorf("failed to write window: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Window{}, false, fmt.Errorf("failed to commit window: %w", err)
	}
	return w, granted, nil
}

func (s *sqliteStore) GetWindow(ctx context.Context, key string) (Window, bool, error) {
	if s == nil || s.db == nil {
		return Window{}, false, ErrClosed
	}
	var w Window
	err := s.db.QueryRowContext(ctx, `SELECT window_start, count FROM rate_windows WHERE key = ?`, key).Scan(&w.Start, &w.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, err
	}
	return w, true, nil
}
