// Package messages renders notification texts in Telegram Markdown.
package messages

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sheet_notify/internal/classify"
	"sheet_notify/internal/sheets"

	"github.com/rs/zerolog/log"
)

// TimestampLayout matches the ru-RU locale rendering "16.10.2026, 14:03:05".
const TimestampLayout = "02.01.2006, 15:04:05"

// contextKeywords select row-1 headers whose values describe the row.
var contextKeywords = []string{"клиент", "товар", "заказ", "проект", "задача", "id"}

// StatusChange describes one cell that now holds a status.
// Address is the edited A1 block; when empty the single cell at Row/Column is shown.
type StatusChange struct {
	Sheet   string
	Row     int
	Column  int
	Address string
	Value   interface{}
	Status  classify.StatusType
	At      time.Time
}

type Formatter struct {
	reader   sheets.RangeReader
	location *time.Location
}

func NewFormatter(reader sheets.RangeReader, location *time.Location) *Formatter {
	if location == nil {
		location = time.UTC
	}
	return &Formatter{reader: reader, location: location}
}

func (f *Formatter) Timestamp(t time.Time) string {
	return t.In(f.location).Format(TimestampLayout)
}

// StatusMessage renders a status change. Header lookups that fail degrade to
// column letters and an empty row context.
func (f *Formatter) StatusMessage(ctx context.Context, change StatusChange) string {
	headers, row := f.rowWithHeaders(ctx, change.Sheet, change.Row)
	address := change.Address
	if address == "" {
		address = sheets.CellRef(change.Row, change.Column)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Изменение статуса*\n\n", change.Status.Emoji())
	fmt.Fprintf(&b, "📊 *Лист:* %s\n", change.Sheet)
	fmt.Fprintf(&b, "📍 *Ячейка:* %s\n", address)
	fmt.Fprintf(&b, "📝 *Столбец:* %s\n", columnName(headers, change.Column))
	fmt.Fprintf(&b, "🔄 *Статус:* %s\n", change.Status.Label())
	fmt.Fprintf(&b, "💬 *Значение:* %s\n", sheets.CellText(change.Value))
	b.WriteString(rowContext(headers, row))
	fmt.Fprintf(&b, "⏰ *Время:* %s", f.Timestamp(change.At))
	return b.String()
}

// NewRecordMessage renders a new intake record, listing only populated fields.
func (f *Formatter) NewRecordMessage(record classify.RecordCandidate) string {
	var b strings.Builder
	b.WriteString("🆕 *НОВАЯ ЗАЯВКА!*\n\n")

	fields := []struct {
		prefix string
		value  string
	}{
		{"📅 *Дата:*", record.Date},
		{"⏰ *Время:*", record.Time},
		{"👤 *Клиент:*", record.Client},
		{"📧 *Email:*", record.Email},
		{"💼 *Услуга:*", record.Service},
		{"💰 *Бюджет:*", record.Budget},
	}
	for _, field := range fields {
		if field.value != "" {
			fmt.Fprintf(&b, "%s %s\n", field.prefix, field.value)
		}
	}

	fmt.Fprintf(&b, "\n📋 *Строка:* %d\n", record.Row)
	fmt.Fprintf(&b, "📊 *Лист:* %s\n", record.Sheet)
	fmt.Fprintf(&b, "⏰ *Получено:* %s", f.Timestamp(record.CapturedAt))
	return b.String()
}

// InternalErrorMessage reports a failure inside the dispatch path itself.
func (f *Formatter) InternalErrorMessage(stage string, err error, at time.Time) string {
	return fmt.Sprintf("⚠️ *Внутренняя ошибка уведомлений*\n\n"+
		"🔧 *Этап:* %s\n"+
		"💬 *Ошибка:* %v\n"+
		"⏰ *Время:* %s", escapeMarkdown(stage), escapeMarkdown(fmt.Sprint(err)), f.Timestamp(at))
}

// markdownEscaper escapes the legacy Markdown entity characters.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// TestMessage is sent to verify the chat connection.
func (f *Formatter) TestMessage(chatID int64, at time.Time) string {
	return "🧪 *ТЕСТ ПОДКЛЮЧЕНИЯ*\n\n" +
		"⏰ Время: " + f.Timestamp(at) + "\n" +
		"📊 Chat ID: " + strconv.FormatInt(chatID, 10) + "\n\n" +
		"✅ Telegram интеграция работает!"
}

// FallbackMessage is the plain-text notice sent when a formatted message is rejected.
func FallbackMessage(err error) string {
	return fmt.Sprintf("❌ Ошибка системы уведомлений: %v", err)
}

func (f *Formatter) rowWithHeaders(ctx context.Context, sheet string, row int) ([]interface{}, []interface{}) {
	if f.reader == nil {
		return nil, nil
	}
	headerGrid, err := f.reader.ReadRange(ctx, sheets.A1Range(sheet, "1:1"))
	if err != nil {
		log.Warn().Err(err).Str("sheet", sheet).Msg("Failed to read header row")
		return nil, nil
	}
	headers := sheets.RowAt(headerGrid, 0)
	if row <= 1 {
		return headers, headers
	}

	rowGrid, err := f.reader.ReadRange(ctx, sheets.A1Range(sheet, fmt.Sprintf("%d:%d", row, row)))
	if err != nil {
		log.Warn().Err(err).Str("sheet", sheet).Int("row", row).Msg("Failed to read row context")
		return headers, nil
	}
	return headers, sheets.RowAt(rowGrid, 0)
}

func columnName(headers []interface{}, col int) string {
	header := sheets.CellText(sheets.CellAt(headers, col-1))
	if strings.TrimSpace(header) == "" {
		return sheets.ColumnLetter(col)
	}
	return header
}

func rowContext(headers, row []interface{}) string {
	var b strings.Builder
	for i, h := range headers {
		header := sheets.CellText(h)
		value := sheets.CellAt(row, i)
		if sheets.IsBlank(value) || !hasContextKeyword(header) {
			continue
		}
		fmt.Fprintf(&b, "📋 *%s:* %s\n", header, sheets.CellText(value))
	}
	return b.String()
}

func hasContextKeyword(header string) bool {
	lower := strings.ToLower(header)
	for _, kw := range contextKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
