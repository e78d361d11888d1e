package settings

import (
	"context"
	"strings"
)

// IsSystemSheet reports whether edits on name must be ignored: it is listed in
// SYSTEM_SHEETS_EXCLUDE or starts with an underscore.
func (s *Store) IsSystemSheet(ctx context.Context, name string) bool {
	if strings.HasPrefix(name, "_") {
		return true
	}
	for _, entry := range strings.Split(s.String(ctx, KeySystemSheetsExclude), ",") {
		if entry = strings.TrimSpace(entry); entry != "" && entry == name {
			return true
		}
	}
	return false
}

// ColorNotificationsEnabled gates status-change detection.
func (s *Store) ColorNotificationsEnabled(ctx context.Context) bool {
	return s.Bool(ctx, KeyColorNotifications)
}

// NewRecordsEnabled gates new-record detection.
func (s *Store) NewRecordsEnabled(ctx context.Context) bool {
	return s.Bool(ctx, KeyNewRecords)
}
