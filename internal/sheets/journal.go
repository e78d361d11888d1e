package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// JournalEntry is one row of the notification journal sheet.
type JournalEntry struct {
	At     time.Time
	Kind   string
	Sheet  string
	Row    int
	Status string
}

// Journal appends a row per delivered notification to a dedicated sheet.
// A nil Journal is valid and records nothing.
type Journal struct {
	appender  RowAppender
	sheetName string
}

// NewJournal returns nil when sheetName is empty.
func NewJournal(appender RowAppender, sheetName string) *Journal {
	if sheetName == "" {
		return nil
	}
	return &Journal{appender: appender, sheetName: sheetName}
}

func (j *Journal) SheetName() string {
	if j == nil {
		return ""
	}
	return j.sheetName
}

func (j *Journal) Record(ctx context.Context, entry JournalEntry) error {
	if j == nil {
		return nil
	}
	row := []interface{}{
		entry.At.Format("2006-01-02 15:04:05"),
		entry.Kind,
		entry.Sheet,
		entry.Row,
		entry.Status,
	}
	if err := j.appender.AppendRows(ctx, A1Range(j.sheetName, "A1"), [][]interface{}{row}); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	log.Debug().
		Str("journal", j.sheetName).
		Str("kind", entry.Kind).
		Int("row", entry.Row).
		Msg("Recorded journal entry")
	return nil
}
