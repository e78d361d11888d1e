package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheet_notify/internal/edits"
	"sheet_notify/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Intake sheet layout, 1-based.
const (
	ColDate    = 1
	ColTime    = 2
	ColClient  = 3
	ColEmail   = 4
	ColService = 5
	ColBudget  = 6

	recordWidth = 6
)

// RecordCandidate is an intake row reconstructed for a new-record notification.
type RecordCandidate struct {
	Date       string
	Time       string
	Client     string
	Email      string
	Service    string
	Budget     string
	Row        int
	Sheet      string
	CapturedAt time.Time
}

// Valid reports whether the row carries a client or a service.
func (r RecordCandidate) Valid() bool {
	return strings.TrimSpace(r.Client) != "" || strings.TrimSpace(r.Service) != ""
}

// RecordDetector recognizes first entries into empty rows of the intake sheet.
type RecordDetector struct {
	reader      sheets.RangeReader
	intakeSheet string
	now         func() time.Time
}

func NewRecordDetector(reader sheets.RangeReader, intakeSheet string, now func() time.Time) *RecordDetector {
	if now == nil {
		now = time.Now
	}
	return &RecordDetector{
		reader:      reader,
		intakeSheet: intakeSheet,
		now:         now,
	}
}

func (d *RecordDetector) IntakeSheet() string {
	return d.intakeSheet
}

// Detect returns a candidate when ev is the first entry into a previously empty
// intake row, and nil otherwise. Only sheet read failures are returned as errors.
func (d *RecordDetector) Detect(ctx context.Context, ev edits.EditEvent) (*RecordCandidate, error) {
	rng := ev.Range
	logger := log.With().
		Str("sheet", rng.SheetName).
		Str("cell", ev.Address()).
		Logger()

	if rng.SheetName != d.intakeSheet {
		logger.Debug().Msg("Sheet is not tracked for new records")
		return nil, nil
	}
	if rng.Row <= 1 {
		logger.Debug().Msg("Ignoring header row edit")
		return nil, nil
	}

	block, err := d.reader.ReadRange(ctx, sheets.A1Range(rng.SheetName, sheets.BlockRef(rng.Row, ColDate, rng.NumRows, recordWidth)))
	if err != nil {
		return nil, fmt.Errorf("failed to read intake row %d: %w", rng.Row, err)
	}
	snapshot := sheets.RowAt(block, 0)

	for col := 1; col <= recordWidth; col++ {
		if ev.CoversColumn(col) {
			continue
		}
		if !sheets.IsBlank(sheets.CellAt(snapshot, col-1)) {
			logger.Debug().Int("filled_column", col).Msg("Row already had data, not a new record")
			return nil, nil
		}
	}

	if ev.IsMassInsertion() {
		trigger, triggerRow := "", 0
		for i := 0; i < rng.NumRows && trigger == ""; i++ {
			row := sheets.RowAt(block, i)
			switch {
			case !sheets.IsBlank(sheets.CellAt(row, ColClient-1)):
				trigger, triggerRow = "client", rng.Row+i
			case !sheets.IsBlank(sheets.CellAt(row, ColService-1)):
				trigger, triggerRow = "service", rng.Row+i
			}
		}
		if trigger == "" {
			logger.Debug().Int("rows", rng.NumRows).Msg("Mass insertion has no client or service")
			return nil, nil
		}
		logger.Debug().
			Str("field", trigger).
			Int("trigger_row", triggerRow).
			Msg("Mass insertion contains a new record")
	} else {
		if rng.Column != ColClient && rng.Column != ColService {
			logger.Debug().Int("column", rng.Column).Msg("Column does not start a new record")
			return nil, nil
		}
		if sheets.IsBlank(ev.Value) {
			logger.Debug().Msg("Edited cell is empty")
			return nil, nil
		}
	}

	candidate := candidateFromRow(snapshot)
	candidate.Row = rng.Row
	candidate.Sheet = rng.SheetName
	candidate.CapturedAt = d.now()

	if !candidate.Valid() {
		logger.Debug().Msg("Row has neither client nor service")
		return nil, nil
	}

	logger.Info().
		Int("row", candidate.Row).
		Str("client", candidate.Client).
		Str("service", candidate.Service).
		Msg("Detected new record")
	return &candidate, nil
}

func candidateFromRow(row []interface{}) RecordCandidate {
	text := func(col int) string {
		return sheets.CellText(sheets.CellAt(row, col-1))
	}
	return RecordCandidate{
		Date:    text(ColDate),
		Time:    NormalizeTime(sheets.CellAt(row, ColTime-1)),
		Client:  text(ColClient),
		Email:   text(ColEmail),
		Service: text(ColService),
		Budget:  text(ColBudget),
	}
}
