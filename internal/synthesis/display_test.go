package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightx/upi-insight/internal/dataset"
)

func groupedResult(column string, n int) *dataset.Result {
	result := &dataset.Result{Columns: []string{column, "transaction_count"}}

	for i := 0; i < n; i++ {
		result.Rows = append(result.Rows, map[string]any{
			column:              "value",
			"transaction_count": int64(i + 1),
		})
	}

	return result
}

func TestSuggestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		question string
		result   *dataset.Result
		want     string
		wantX    string
		wantY    string
	}{
		{
			name:     "empty result is text",
			question: "any transactions above a crore?",
			result:   &dataset.Result{Columns: []string{"amount_inr"}},
			want:     DisplayText,
		},
		{
			name:     "single scalar is kpi",
			question: "how many transactions?",
			result: &dataset.Result{
				Columns: []string{"transaction_count"},
				Rows:    []map[string]any{{"transaction_count": int64(24950)}},
			},
			want: DisplayKPI,
		},
		{
			name:     "small categorical with share framing is pie",
			question: "what is the share of each transaction type?",
			result:   groupedResult("transaction_type", 4),
			want:     DisplayPie,
			wantX:    "transaction_type",
			wantY:    "transaction_count",
		},
		{
			name:     "small categorical without share framing is bar",
			question: "transactions per bank",
			result:   groupedResult("sender_bank", 8),
			want:     DisplayBar,
			wantX:    "sender_bank",
			wantY:    "transaction_count",
		},
		{
			name:     "time-axis grouping is line",
			question: "monthly trend of transactions",
			result:   groupedResult("month", 12),
			want:     DisplayLine,
			wantX:    "month",
			wantY:    "transaction_count",
		},
		{
			name:     "many categories fall back to table",
			question: "transactions per merchant",
			result:   groupedResult("merchant_category", 30),
			want:     DisplayTable,
		},
		{
			name:     "wide result is table",
			question: "show recent transactions",
			result: &dataset.Result{
				Columns: []string{"transaction_id", "amount_inr", "sender_bank"},
				Rows: []map[string]any{
					{"transaction_id": "TXN1", "amount_inr": int64(500), "sender_bank": "SBI"},
				},
			},
			want: DisplayTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, x, y := SuggestDisplay(tt.question, tt.result)

			assert.Equal(t, tt.want, display)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestIsValidDisplay(t *testing.T) {
	for _, valid := range []string{"table", "bar", "line", "pie", "kpi", "text", " Bar "} {
		assert.True(t, IsValidDisplay(valid), valid)
	}

	for _, invalid := range []string{"", "chart", "scatter", "graph"} {
		assert.False(t, IsValidDisplay(invalid), invalid)
	}
}

func TestColumnIn(t *testing.T) {
	columns := []string{"sender_bank", "transaction_count"}

	assert.True(t, ColumnIn("sender_bank", columns))
	assert.True(t, ColumnIn(" Transaction_Count ", columns))
	assert.False(t, ColumnIn("amount_inr", columns))
	assert.False(t, ColumnIn("", columns))
}
