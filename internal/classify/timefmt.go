package classify

import (
	"fmt"
	"math"

	"sheet_notify/internal/sheets"
)

const minutesPerDay = 24 * 60

// NormalizeTime renders a fractional-day time serial as HH:MM.
// The integer part of a combined date-time serial is dropped, and the
// result is rounded to the nearest minute so 0.7708333 reads as 18:30.
// Non-numeric values are returned as cell text.
func NormalizeTime(value interface{}) string {
	var serial float64
	switch v := value.(type) {
	case float64:
		serial = v
	case float32:
		serial = float64(v)
	case int:
		serial = float64(v)
	case int64:
		serial = float64(v)
	default:
		return sheets.CellText(value)
	}
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 {
		return sheets.CellText(value)
	}

	fraction := serial - math.Floor(serial)
	total := int(math.Round(fraction*minutesPerDay)) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
