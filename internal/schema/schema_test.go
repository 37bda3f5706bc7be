package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDescriptor(t *testing.T) {
	d := Default()

	require.Len(t, d.Tables, 1)
	assert.Equal(t, "transactions", d.Tables[0].Name)
	assert.Len(t, d.Tables[0].Columns, 21)
	assert.NotEmpty(t, d.Rules)
}

func TestKnows(t *testing.T) {
	d := Default()

	assert.True(t, d.Knows("transactions"))
	assert.True(t, d.Knows("amount_inr"))
	assert.True(t, d.Knows("AMOUNT_INR"))
	assert.True(t, d.Knows("  sender_bank  "))
	assert.False(t, d.Knows("customer_name"))
	assert.False(t, d.Knows(""))
}

func TestColumnLookup(t *testing.T) {
	d := Default()

	col, ok := d.Column("merchant_category")
	require.True(t, ok)
	assert.True(t, col.Nullable)
	assert.Contains(t, col.Values, "Food")

	_, ok = d.Column("nonexistent")
	assert.False(t, ok)
}

func TestNumericAndCategoricalColumns(t *testing.T) {
	d := Default()

	assert.Contains(t, d.NumericColumns(), "amount_inr")
	assert.Contains(t, d.NumericColumns(), "hour_of_day")
	assert.NotContains(t, d.NumericColumns(), "sender_bank")

	assert.Contains(t, d.CategoricalColumns(), "transaction_type")
	assert.NotContains(t, d.CategoricalColumns(), "transaction_id")
}

func TestPromptBlock(t *testing.T) {
	block := Default().PromptBlock()

	assert.Contains(t, block, "Table: transactions")
	assert.Contains(t, block, "amount_inr INTEGER")
	assert.Contains(t, block, "P2P | P2M | Bill Payment | Recharge")
	assert.Contains(t, block, "NULL merchant_category")
}

func TestUnknownColumns(t *testing.T) {
	d := Default()

	tests := []struct {
		name    string
		claimed []string
		known   []string
		want    []string
	}{
		{
			name:    "all schema columns",
			claimed: []string{"sender_bank", "amount_inr"},
		},
		{
			name:    "alias resolved via result columns",
			claimed: []string{"failure_rate"},
			known:   []string{"network_type", "failure_rate"},
		},
		{
			name:    "hallucinated column",
			claimed: []string{"customer_segment"},
			known:   []string{"sender_bank"},
			want:    []string{"customer_segment"},
		},
		{
			name:    "case and quoting insensitive",
			claimed: []string{`"Sender_Bank"`, "TXN_COUNT"},
			known:   []string{"txn_count"},
		},
		{
			name:    "empty names skipped",
			claimed: []string{"", "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.UnknownColumns(tt.claimed, tt.known)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvesColumn(t *testing.T) {
	d := Default()

	assert.True(t, d.ResolvesColumn("day_part", nil))
	assert.True(t, d.ResolvesColumn("txn_count", []string{"day_part", "txn_count"}))
	assert.False(t, d.ResolvesColumn("profit_margin", []string{"day_part"}))
}
