// Package processing turns edit events into notifications.
package processing

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"sheet_notify/internal/classify"
	"sheet_notify/internal/edits"
	"sheet_notify/internal/messages"
	"sheet_notify/internal/notifications"
	"sheet_notify/internal/sheets"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Settings is the slice of the settings store the coordinator consults per event.
type Settings interface {
	IsSystemSheet(ctx context.Context, name string) bool
	ColorNotificationsEnabled(ctx context.Context) bool
	NewRecordsEnabled(ctx context.Context) bool
}

type Notifier interface {
	Send(ctx context.Context, message string) notifications.DeliveryResult
}

// Coordinator dispatches edit events of one spreadsheet.
type Coordinator struct {
	spreadsheetID string
	settings      Settings
	detector      *classify.RecordDetector
	formatter     *messages.Formatter
	notifier      Notifier
	journal       *sheets.Journal
	now           func() time.Time
}

func NewCoordinator(spreadsheetID string, settings Settings, detector *classify.RecordDetector, formatter *messages.Formatter, notifier Notifier, journal *sheets.Journal) *Coordinator {
	return &Coordinator{
		spreadsheetID: spreadsheetID,
		settings:      settings,
		detector:      detector,
		formatter:     formatter,
		notifier:      notifier,
		journal:       journal,
		now:           time.Now,
	}
}

// HandleEdit processes one raw event. It never panics and never returns an
// error; failures are reported in the Result.
func (c *Coordinator) HandleEdit(ctx context.Context, raw edits.RawEvent) (result Result) {
	result.EventID = uuid.NewString()
	logger := log.With().Str("event_id", result.EventID).Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Err = c.recoverPanic(ctx, logger, "dispatch", r)
		}
		logger.Debug().Str("state", string(StateIdle)).Msg("Event state changed")
	}()

	logger.Debug().Str("state", string(StateFiltering)).Msg("Event state changed")
	ev, err := raw.Validate()
	if err != nil {
		logger.Debug().Err(err).Msg("Ignoring malformed edit event")
		result.Filtered = FilterInvalidEvent
		result.Err = err
		return result
	}

	logger = logger.With().
		Str("sheet", ev.Range.SheetName).
		Str("cell", ev.Address()).
		Logger()

	if reason := c.filter(ctx, ev); reason != "" {
		logger.Debug().Str("reason", reason).Msg("Edit event filtered out")
		result.Filtered = reason
		return result
	}

	logger.Debug().Str("state", string(StateClassifying)).Msg("Event state changed")
	result.Status = c.runStage(ctx, logger, "status", func() StageResult {
		return c.handleStatus(ctx, logger, ev)
	})
	result.NewRecord = c.runStage(ctx, logger, "new_record", func() StageResult {
		return c.handleNewRecord(ctx, logger, ev)
	})

	if errs := result.Errors(); errs != nil {
		logger.Warn().
			Err(errs).
			Str("status", string(result.Status.Outcome)).
			Str("new_record", string(result.NewRecord.Outcome)).
			Msg("Edit event processed with failures")
	} else if result.Notifications() == 0 {
		logger.Debug().
			Str("status", string(result.Status.Outcome)).
			Str("new_record", string(result.NewRecord.Outcome)).
			Msg("No notification for edit event")
	} else {
		logger.Info().
			Int("notifications", result.Notifications()).
			Msg("Edit event processed")
	}
	return result
}

func (c *Coordinator) filter(ctx context.Context, ev edits.EditEvent) string {
	if ev.SpreadsheetID != c.spreadsheetID {
		return FilterForeignSpreadsheet
	}
	if c.settings.IsSystemSheet(ctx, ev.Range.SheetName) {
		return FilterSystemSheet
	}
	if ev.Range.Row == 1 && ev.Range.NumRows == 1 {
		return FilterHeaderRow
	}
	return ""
}

func (c *Coordinator) handleStatus(ctx context.Context, logger zerolog.Logger, ev edits.EditEvent) StageResult {
	if !c.settings.ColorNotificationsEnabled(ctx) {
		return StageResult{Outcome: OutcomeDisabled}
	}

	status := classify.ClassifyStatus(ev.Value)
	if status == classify.StatusNone {
		logger.Debug().Msg("Value is not a status")
		return StageResult{Outcome: OutcomeNoMatch}
	}
	logger.Info().Str("status", status.String()).Msg("Detected status change")

	at := c.now()
	msg := c.formatter.StatusMessage(ctx, messages.StatusChange{
		Sheet:   ev.Range.SheetName,
		Row:     ev.Range.Row,
		Column:  ev.Range.Column,
		Address: ev.Address(),
		Value:   ev.Value,
		Status:  status,
		At:      at,
	})
	return c.deliver(ctx, logger, msg, sheets.JournalEntry{
		At:     at,
		Kind:   "status",
		Sheet:  ev.Range.SheetName,
		Row:    ev.Range.Row,
		Status: status.String(),
	})
}

func (c *Coordinator) handleNewRecord(ctx context.Context, logger zerolog.Logger, ev edits.EditEvent) StageResult {
	if !c.settings.NewRecordsEnabled(ctx) {
		return StageResult{Outcome: OutcomeDisabled}
	}

	candidate, err := c.detector.Detect(ctx, ev)
	if err != nil {
		logger.Error().Err(err).Msg("New record detection failed")
		c.notifyInternalError(ctx, logger, "new_record", err)
		return StageResult{Outcome: OutcomeFailed, Err: err}
	}
	if candidate == nil {
		return StageResult{Outcome: OutcomeNoMatch}
	}

	msg := c.formatter.NewRecordMessage(*candidate)
	return c.deliver(ctx, logger, msg, sheets.JournalEntry{
		At:     candidate.CapturedAt,
		Kind:   "new_record",
		Sheet:  candidate.Sheet,
		Row:    candidate.Row,
		Status: "new",
	})
}

func (c *Coordinator) deliver(ctx context.Context, logger zerolog.Logger, msg string, entry sheets.JournalEntry) StageResult {
	logger.Debug().Str("state", string(StateNotifying)).Str("kind", entry.Kind).Msg("Event state changed")

	stage := stageFromDelivery(c.notifier.Send(ctx, msg))
	logger.Debug().
		Str("kind", entry.Kind).
		Str("outcome", string(stage.Outcome)).
		Msg("Notification dispatched")

	if stage.Notified() {
		if err := c.journal.Record(ctx, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to write notification journal")
		}
	}
	return stage
}

// runStage isolates a branch so a panic in one does not cancel the other.
func (c *Coordinator) runStage(ctx context.Context, logger zerolog.Logger, name string, fn func() StageResult) (stage StageResult) {
	defer func() {
		if r := recover(); r != nil {
			stage = StageResult{
				Outcome: OutcomeFailed,
				Err:     c.recoverPanic(ctx, logger, name, r),
			}
		}
	}()
	return fn()
}

func (c *Coordinator) recoverPanic(ctx context.Context, logger zerolog.Logger, stage string, r interface{}) error {
	err := fmt.Errorf("panic in %s stage: %v", stage, r)
	logger.Error().
		Str("stage", stage).
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("Recovered from panic while handling edit event")
	c.notifyInternalError(ctx, logger, stage, err)
	return err
}

func (c *Coordinator) notifyInternalError(ctx context.Context, logger zerolog.Logger, stage string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Internal error notification panicked")
		}
	}()
	res := c.notifier.Send(ctx, c.formatter.InternalErrorMessage(stage, err, c.now()))
	if !res.Delivered() {
		logger.Warn().
			Str("outcome", res.Outcome.String()).
			Msg("Internal error notification not delivered")
	}
}
