package synthesis

import (
	"strings"

	"github.com/insightx/upi-insight/internal/dataset"
)

// Display hint values understood by clients.
const (
	DisplayTable = "table"
	DisplayBar   = "bar"
	DisplayLine  = "line"
	DisplayPie   = "pie"
	DisplayKPI   = "kpi"
	DisplayText  = "text"
)

var validDisplays = map[string]bool{
	DisplayTable: true,
	DisplayBar:   true,
	DisplayLine:  true,
	DisplayPie:   true,
	DisplayKPI:   true,
	DisplayText:  true,
}

// IsValidDisplay reports whether a display hint is one of the known values.
func IsValidDisplay(display string) bool {
	return validDisplays[strings.ToLower(strings.TrimSpace(display))]
}

var timeLikeFragments = []string{"month", "date", "day", "hour", "year", "week", "timestamp", "time"}

var shareFragments = []string{"share", "percent", "proportion", "distribution", "breakdown", "split"}

// SuggestDisplay picks a presentation for a result shape deterministically.
// It is the authority whenever the synthesis model returns an invalid or
// ungrounded hint.
func SuggestDisplay(question string, result *dataset.Result) (display, xAxis, yAxis string) {
	rowCount := result.RowCount()

	if rowCount == 0 {
		return DisplayText, "", ""
	}

	if rowCount == 1 && len(result.Columns) == 1 {
		return DisplayKPI, "", ""
	}

	if len(result.Columns) == 2 {
		x, y := result.Columns[0], result.Columns[1]

		if !isNumericColumn(result, x) && isNumericColumn(result, y) {
			if rowCount >= 2 && rowCount <= 6 && hasShareFraming(question) {
				return DisplayPie, x, y
			}

			if isTimeLike(x) {
				return DisplayLine, x, y
			}

			if rowCount <= 20 {
				return DisplayBar, x, y
			}
		}
	}

	return DisplayTable, "", ""
}

func hasShareFraming(question string) bool {
	lower := strings.ToLower(question)

	for _, fragment := range shareFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}

	return false
}

func isTimeLike(column string) bool {
	lower := strings.ToLower(column)

	for _, fragment := range timeLikeFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}

	return false
}

// isNumericColumn samples the first non-nil value of a column.
func isNumericColumn(result *dataset.Result, column string) bool {
	for _, row := range result.Rows {
		switch row[column].(type) {
		case nil:
			continue
		case int, int32, int64, uint64, float32, float64:
			return true
		default:
			return false
		}
	}

	return false
}

// ColumnIn reports whether an axis claim resolves against the result.
func ColumnIn(column string, columns []string) bool {
	lower := strings.ToLower(strings.TrimSpace(column))

	for _, candidate := range columns {
		if strings.ToLower(candidate) == lower {
			return true
		}
	}

	return false
}
