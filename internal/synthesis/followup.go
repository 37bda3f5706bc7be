package synthesis

import (
	"fmt"
	"strings"

	"github.com/insightx/upi-insight/internal/schema"
)

// normalizeQuestion collapses case and whitespace so near-duplicate phrasings
// compare equal.
func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// NormalizeFollowups returns exactly k follow-up questions: model
// suggestions first, minus anything already asked in the conversation and
// anything naming a column that exists in neither the schema nor the result,
// padded from schema-derived templates when the model under-delivers.
func NormalizeFollowups(suggested, asked, resultColumns []string, desc *schema.Descriptor, k int) []string {
	seen := map[string]bool{}
	for _, question := range asked {
		seen[normalizeQuestion(question)] = true
	}

	var followups []string

	for _, question := range suggested {
		question = strings.TrimSpace(question)
		if question == "" || namesUnknownColumn(question, resultColumns, desc) {
			continue
		}

		key := normalizeQuestion(question)
		if seen[key] {
			continue
		}

		seen[key] = true
		followups = append(followups, question)

		if len(followups) == k {
			return followups
		}
	}

	for _, question := range templateFollowups(desc) {
		if len(followups) == k {
			break
		}

		key := normalizeQuestion(question)
		if seen[key] {
			continue
		}

		seen[key] = true
		followups = append(followups, question)
	}

	return followups
}

// namesUnknownColumn reports whether the question contains a snake_case
// token that resolves to neither a schema column nor a result column.
// Dataset columns are all snake_case, so an underscore marks a column
// reference rather than ordinary prose.
func namesUnknownColumn(question string, resultColumns []string, desc *schema.Descriptor) bool {
	for _, token := range strings.Fields(question) {
		token = strings.Trim(token, ".,?!'\"()")
		if !strings.Contains(token, "_") {
			continue
		}

		if !desc.ResolvesColumn(token, resultColumns) {
			return true
		}
	}

	return false
}

// templateFollowups generates schema-grounded questions used as padding.
func templateFollowups(desc *schema.Descriptor) []string {
	metrics := []string{"the transaction count", "the average amount", "the total amount"}

	var questions []string

	for i, column := range desc.CategoricalColumns() {
		metric := metrics[i%len(metrics)]
		questions = append(questions,
			fmt.Sprintf("Show %s grouped by %s", metric, strings.ReplaceAll(column, "_", " ")))
	}

	return questions
}
