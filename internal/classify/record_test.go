package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"sheet_notify/internal/edits"
	"sheet_notify/internal/sheets/sheetstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intake = "Заявки"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newDetector(book *sheetstest.Book) *RecordDetector {
	return NewRecordDetector(book, intake, func() time.Time { return fixedNow })
}

func intakeBook() *sheetstest.Book {
	book := sheetstest.NewBook()
	book.SetRow(intake, 1, "Дата", "Время", "Клиент", "Email", "Услуга", "Бюджет")
	return book
}

func singleEdit(sheet string, row, col int, value interface{}) edits.EditEvent {
	return edits.EditEvent{
		Range: edits.Range{SheetName: sheet, Row: row, Column: col, NumRows: 1, NumCols: 1},
		Value: value,
	}
}

func TestDetectSingleClientEntry(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 5, nil, nil, "Иванов")

	got, err := newDetector(book).Detect(context.Background(), singleEdit(intake, 5, 3, "Иванов"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Иванов", got.Client)
	assert.Equal(t, 5, got.Row)
	assert.Equal(t, intake, got.Sheet)
	assert.Equal(t, fixedNow, got.CapturedAt)
	assert.Equal(t, []string{"'Заявки'!A5:F5"}, book.Reads())
}

func TestDetectRejectsRowWithExistingData(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 5, "01.06.2025", nil, "Иванов")

	got, err := newDetector(book).Detect(context.Background(), singleEdit(intake, 5, 3, "Иванов"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDetectServiceEntryBuildsFullCandidate(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 4, nil, nil, nil, nil, "Консультация")

	got, err := newDetector(book).Detect(context.Background(), singleEdit(intake, 4, 5, "Консультация"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Консультация", got.Service)
	assert.Empty(t, got.Client)
}

func TestDetectRejections(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 6, "01.06.2025")
	book.SetRow(intake, 7, nil, nil, nil, "ivan@example.com")

	tests := []struct {
		name string
		ev   edits.EditEvent
	}{
		{"other sheet", singleEdit("Проекты", 5, 3, "Иванов")},
		{"header row", singleEdit(intake, 1, 3, "Клиент")},
		{"non key column", singleEdit(intake, 6, 1, "01.06.2025")},
		{"email column", singleEdit(intake, 7, 4, "ivan@example.com")},
		{"cleared client", singleEdit(intake, 8, 3, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newDetector(book).Detect(context.Background(), tt.ev)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestDetectMassInsertion(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 10, "01.06.2025", 0.7708333, nil, "a@b.c")
	book.SetRow(intake, 11, "01.06.2025", 0.5, "Петров", "p@b.c", "Дизайн", 15000.0)

	ev := edits.EditEvent{
		Range: edits.Range{SheetName: intake, Row: 10, Column: 1, NumRows: 2, NumCols: 6},
	}
	got, err := newDetector(book).Detect(context.Background(), ev)
	require.NoError(t, err)
	// The block qualifies through row 11 but the candidate is built from the
	// top row, which has neither client nor service.
	assert.Nil(t, got)

	book.SetRow(intake, 10, "01.06.2025", 0.7708333, "Сидоров", "a@b.c", nil, 5000.0)
	got, err = newDetector(book).Detect(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RecordCandidate{
		Date:       "01.06.2025",
		Time:       "18:30",
		Client:     "Сидоров",
		Email:      "a@b.c",
		Budget:     "5000",
		Row:        10,
		Sheet:      intake,
		CapturedAt: fixedNow,
	}, *got)
}

func TestDetectMassInsertionWithoutKeyFields(t *testing.T) {
	book := intakeBook()
	book.SetRow(intake, 3, "01.06.2025", 0.5)

	ev := edits.EditEvent{
		Range: edits.Range{SheetName: intake, Row: 3, Column: 1, NumRows: 1, NumCols: 2},
	}
	got, err := newDetector(book).Detect(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDetectReadFailure(t *testing.T) {
	book := intakeBook()
	book.ReadErr = errors.New("quota exceeded")

	got, err := newDetector(book).Detect(context.Background(), singleEdit(intake, 5, 3, "Иванов"))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, book.ReadErr)
}

func TestRecordCandidateValid(t *testing.T) {
	assert.False(t, RecordCandidate{Date: "01.06.2025"}.Valid())
	assert.False(t, RecordCandidate{Client: "  "}.Valid())
	assert.True(t, RecordCandidate{Client: "Иванов"}.Valid())
	assert.True(t, RecordCandidate{Service: "Дизайн"}.Valid())
}
