package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the declared scalar type of a dataset column
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
)

// Column describes a single column of the transactions dataset
type Column struct {
	Name        string
	Type        ColumnType
	Nullable    bool
	Description string
	// Values holds the known categorical values for low-cardinality columns.
	// Empty for free-form or high-cardinality columns.
	Values []string
}

// Table describes one dataset table
type Table struct {
	Name    string
	Columns []Column
}

// Descriptor is the immutable ground truth for every grounding check.
// It is constructed once at process start and never mutated.
type Descriptor struct {
	Tables []Table
	// Rules are free-text business rules embedded into generation prompts.
	Rules []string

	known map[string]bool
}

// Default returns the descriptor for the fixed UPI transactions dataset.
func Default() *Descriptor {
	d := &Descriptor{
		Tables: []Table{
			{
				Name: "transactions",
				Columns: []Column{
					{Name: "transaction_id", Type: TypeText, Description: "unique ID e.g. TXN0000000001"},
					{Name: "timestamp", Type: TypeText, Description: "datetime e.g. 2024-10-08 15:17:28"},
					{Name: "transaction_type", Type: TypeText, Description: "type of UPI transaction",
						Values: []string{"P2P", "P2M", "Bill Payment", "Recharge"}},
					{Name: "merchant_category", Type: TypeText, Nullable: true, Description: "merchant category, NULL for P2P",
						Values: []string{"Food", "Grocery", "Shopping", "Fuel", "Utilities", "Entertainment", "Healthcare", "Transport", "Education", "Other"}},
					{Name: "amount_inr", Type: TypeInteger, Description: "transaction amount in INR"},
					{Name: "transaction_status", Type: TypeText, Description: "whether the transaction succeeded",
						Values: []string{"SUCCESS", "FAILED"}},
					{Name: "sender_age_group", Type: TypeText, Description: "age bracket of the sender",
						Values: []string{"18-25", "26-35", "36-45", "46-55", "56+"}},
					{Name: "receiver_age_group", Type: TypeText, Nullable: true, Description: "age bracket of the receiver, NULL for non-P2P",
						Values: []string{"18-25", "26-35", "36-45", "46-55", "56+"}},
					{Name: "sender_state", Type: TypeText, Description: "Indian state e.g. Delhi, Maharashtra, Karnataka"},
					{Name: "sender_bank", Type: TypeText, Description: "sender bank",
						Values: []string{"SBI", "HDFC", "ICICI", "Axis", "Kotak", "PNB", "Yes Bank", "IndusInd"}},
					{Name: "receiver_bank", Type: TypeText, Description: "receiver bank",
						Values: []string{"SBI", "HDFC", "ICICI", "Axis", "Kotak", "PNB", "Yes Bank", "IndusInd"}},
					{Name: "device_type", Type: TypeText, Description: "device used for the transaction",
						Values: []string{"Android", "iOS", "Web"}},
					{Name: "network_type", Type: TypeText, Description: "network used during the transaction",
						Values: []string{"3G", "4G", "5G", "WiFi"}},
					{Name: "fraud_flag", Type: TypeInteger, Description: "1 if flagged as fraud, else 0",
						Values: []string{"0", "1"}},
					{Name: "hour_of_day", Type: TypeInteger, Description: "hour when transaction occurred (0-23)"},
					{Name: "day_of_week", Type: TypeText, Description: "day of the week",
						Values: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}},
					{Name: "is_weekend", Type: TypeInteger, Description: "1 on weekends, else 0",
						Values: []string{"0", "1"}},
					{Name: "day_part", Type: TypeText, Description: "derived from hour_of_day",
						Values: []string{"Morning", "Afternoon", "Evening", "Night"}},
					{Name: "amount_tier", Type: TypeText, Description: "derived from amount_inr",
						Values: []string{"Small", "Medium", "Large"}},
					{Name: "sender_age_label", Type: TypeText, Description: "derived from sender_age_group",
						Values: []string{"Young", "Adult", "Old"}},
					{Name: "receiver_age_label", Type: TypeText, Nullable: true, Description: "derived from receiver_age_group, NULL for non-P2P",
						Values: []string{"Young", "Adult", "Old"}},
				},
			},
		},
		Rules: []string{
			"P2P transactions have a NULL merchant_category.",
			"Non-P2P transactions have a NULL receiver_age_group and receiver_age_label.",
		},
	}

	d.known = make(map[string]bool)
	for _, table := range d.Tables {
		d.known[strings.ToLower(table.Name)] = true
		for _, col := range table.Columns {
			d.known[strings.ToLower(col.Name)] = true
		}
	}

	return d
}

// Knows reports whether the identifier is a table or column of the dataset.
// Matching is case-insensitive.
func (d *Descriptor) Knows(identifier string) bool {
	return d.known[strings.ToLower(strings.TrimSpace(identifier))]
}

// ColumnNames returns all column names, in declaration order.
func (d *Descriptor) ColumnNames() []string {
	var names []string
	for _, table := range d.Tables {
		for _, col := range table.Columns {
			names = append(names, col.Name)
		}
	}

	return names
}

// NumericColumns returns the names of integer and real columns.
func (d *Descriptor) NumericColumns() []string {
	var names []string
	for _, table := range d.Tables {
		for _, col := range table.Columns {
			if col.Type == TypeInteger || col.Type == TypeReal {
				names = append(names, col.Name)
			}
		}
	}

	return names
}

// CategoricalColumns returns the names of columns with known value sets.
func (d *Descriptor) CategoricalColumns() []string {
	var names []string
	for _, table := range d.Tables {
		for _, col := range table.Columns {
			if len(col.Values) > 0 {
				names = append(names, col.Name)
			}
		}
	}

	return names
}

// Column looks up a column by name (case-insensitive).
func (d *Descriptor) Column(name string) (Column, bool) {
	for _, table := range d.Tables {
		for _, col := range table.Columns {
			if strings.EqualFold(col.Name, name) {
				return col, true
			}
		}
	}

	return Column{}, false
}

// PromptBlock renders the schema as a text block for reasoning prompts.
func (d *Descriptor) PromptBlock() string {
	var sb strings.Builder

	for _, table := range d.Tables {
		sb.WriteString(fmt.Sprintf("Table: %s\nColumns:\n", table.Name))

		for _, col := range table.Columns {
			sb.WriteString(fmt.Sprintf("  %s %s", col.Name, strings.ToUpper(string(col.Type))))
			if col.Description != "" {
				sb.WriteString("  -- " + col.Description)
			}

			if len(col.Values) > 0 {
				sb.WriteString(" | values: " + strings.Join(col.Values, " | "))
			}

			if col.Nullable {
				sb.WriteString(" (nullable)")
			}

			sb.WriteString("\n")
		}
	}

	if len(d.Rules) > 0 {
		sb.WriteString("Rules:\n")

		for _, rule := range d.Rules {
			sb.WriteString("  - " + rule + "\n")
		}
	}

	return sb.String()
}
