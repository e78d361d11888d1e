// Package classify decides what an edit means: a status change, a new intake record, or nothing.
package classify

import (
	"strings"

	"sheet_notify/internal/sheets"
)

type StatusType string

const (
	StatusNone       StatusType = ""
	StatusCompleted  StatusType = "completed"
	StatusInProgress StatusType = "in_progress"
	StatusProblem    StatusType = "problem"
	StatusReady      StatusType = "ready"
)

// Order matters: the first matching set wins, and within Ready
// "готов к сдаче" is listed before its prefix "готов".
var statusKeywords = []struct {
	status   StatusType
	keywords []string
}{
	{StatusCompleted, []string{"✅", "выполнен", "завершен", "готово"}},
	{StatusInProgress, []string{"🟡", "в работе", "работа", "processing"}},
	{StatusProblem, []string{"🔴", "проблема", "ошибка", "error"}},
	{StatusReady, []string{"🟢", "готов к сдаче", "готов", "ready"}},
}

// ClassifyStatus maps a cell value to a status by substring match.
// Empty, absent or unrecognized values yield StatusNone.
func ClassifyStatus(value interface{}) StatusType {
	text := strings.ToLower(strings.TrimSpace(sheets.CellText(value)))
	if text == "" {
		return StatusNone
	}

	for _, set := range statusKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				return set.status
			}
		}
	}
	return StatusNone
}

func (s StatusType) Emoji() string {
	switch s {
	case StatusCompleted:
		return "✅"
	case StatusInProgress:
		return "🟡"
	case StatusProblem:
		return "🔴"
	case StatusReady:
		return "🟢"
	default:
		return "🔄"
	}
}

func (s StatusType) Label() string {
	switch s {
	case StatusCompleted:
		return "Выполнен"
	case StatusInProgress:
		return "В работе"
	case StatusProblem:
		return "Проблема"
	case StatusReady:
		return "Готов к сдаче"
	default:
		return "Неизвестный статус"
	}
}

func (s StatusType) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}
