package processing

import (
	"errors"

	"sheet_notify/internal/notifications"
)

// State is a step of the per-event state machine.
type State string

const (
	StateIdle        State = "idle"
	StateFiltering   State = "filtering"
	StateClassifying State = "classifying"
	StateNotifying   State = "notifying"
)

// Reasons an event is dropped during filtering.
const (
	FilterInvalidEvent       = "invalid_event"
	FilterForeignSpreadsheet = "foreign_spreadsheet"
	FilterSystemSheet        = "system_sheet"
	FilterHeaderRow          = "header_row"
)

type Outcome string

const (
	OutcomeDisabled   Outcome = "disabled"
	OutcomeNoMatch    Outcome = "no_match"
	OutcomeNotified   Outcome = "notified"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

// StageResult is the typed result of one classify-format-send branch.
type StageResult struct {
	Outcome  Outcome
	Delivery *notifications.DeliveryResult
	Err      error
}

func (r StageResult) Notified() bool {
	return r.Outcome == OutcomeNotified
}

// Result aggregates what happened to one edit event.
type Result struct {
	EventID   string
	Filtered  string
	Status    StageResult
	NewRecord StageResult
	// Err holds failures at the boundary: validation and recovered panics.
	Err error
}

// Errors joins every failure recorded for the event.
func (r Result) Errors() error {
	return errors.Join(r.Err, r.Status.Err, r.NewRecord.Err)
}

// Notifications counts the messages delivered for the event.
func (r Result) Notifications() int {
	n := 0
	if r.Status.Notified() {
		n++
	}
	if r.NewRecord.Notified() {
		n++
	}
	return n
}

func stageFromDelivery(res notifications.DeliveryResult) StageResult {
	stage := StageResult{Delivery: &res, Err: res.Err}
	switch res.Outcome {
	case notifications.OutcomeDelivered:
		stage.Outcome = OutcomeNotified
	case notifications.OutcomeRateLimited:
		stage.Outcome = OutcomeSuppressed
	default:
		stage.Outcome = OutcomeFailed
	}
	return stage
}
