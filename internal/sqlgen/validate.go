package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/schema"
)

// Statements that mutate data, schema, or database state. Matched as
// whole words so column names like "created_at" are unaffected.
var forbiddenStatements = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"attach", "detach", "pragma", "copy", "grant", "revoke", "vacuum",
	"call", "install", "load", "export", "import", "set",
}

var forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenStatements, "|") + `)\b`)

// SQL keywords, functions, and literals that may appear in generated
// queries without being schema identifiers.
var sqlVocabulary = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "limit": true, "offset": true, "as": true,
	"and": true, "or": true, "not": true, "in": true, "is": true, "null": true,
	"like": true, "ilike": true, "between": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "distinct": true, "on": true,
	"join": true, "inner": true, "left": true, "right": true, "outer": true,
	"full": true, "cross": true, "asc": true, "desc": true, "union": true,
	"all": true, "with": true, "exists": true, "any": true, "some": true,
	"true": true, "false": true, "nulls": true, "first": true, "last": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"round": true, "cast": true, "strftime": true, "date": true,
	"extract": true, "year": true, "month": true, "day": true, "hour": true,
	"minute": true, "second": true, "dow": true, "epoch": true,
	"coalesce": true, "nullif": true, "ifnull": true, "if": true,
	"concat": true, "lower": true, "upper": true, "substr": true,
	"substring": true, "trim": true, "length": true, "abs": true,
	"greatest": true, "least": true, "mod": true, "floor": true, "ceil": true,
	"over": true, "partition": true, "row_number": true, "rank": true,
	"dense_rank": true, "lag": true, "lead": true, "filter": true,
	"median": true, "stddev": true, "percentile_cont": true,
	"integer": true, "bigint": true, "real": true, "double": true,
	"float": true, "text": true, "varchar": true, "boolean": true,
	"decimal": true, "numeric": true, "interval": true, "timestamp": true,
	"current_date": true, "current_timestamp": true, "now": true,
	"within": true, "using": true,
}

var (
	identifierPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	aliasPattern      = regexp.MustCompile(`(?i)\bas\s+("?[a-zA-Z_][a-zA-Z0-9_]*"?)`)
	ctePattern        = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s+as\s*\(`)
	tableRefPattern   = regexp.MustCompile(`(?i)\b(?:from|join)\s+("?[a-zA-Z_][a-zA-Z0-9_]*"?)`)
	// Table aliases bound without AS, e.g. FROM transactions t. A trailing
	// keyword can match too; that is harmless since keywords are never
	// identifier candidates.
	tableAliasPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+"?[a-zA-Z_][a-zA-Z0-9_]*"?\s+(?:as\s+)?("?[a-zA-Z_][a-zA-Z0-9_]*"?)`)
	stringLiteral     = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// Validate checks a generated statement before execution: exactly one
// read-only SELECT, no mutating keywords, and every referenced table and
// column must exist in the dataset schema. Rejection messages are written
// to be fed back into a regeneration prompt.
func Validate(sql string, desc *schema.Descriptor) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return apperrors.New(apperrors.ErrTypeValidation, "generated SQL is empty")
	}

	// Strip string literals before any structural check so values like
	// 'Bill Payment' or '%;%' cannot trigger false rejections.
	stripped := stringLiteral.ReplaceAllString(trimmed, "''")

	// One trailing semicolon is tolerated; anything after it is not.
	stripped = strings.TrimSuffix(strings.TrimSpace(stripped), ";")
	if strings.Contains(stripped, ";") {
		return apperrors.New(apperrors.ErrTypeValidation, "multiple SQL statements are not allowed")
	}

	lower := strings.ToLower(stripped)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return apperrors.New(apperrors.ErrTypeValidation, "only SELECT statements are allowed")
	}

	if match := forbiddenPattern.FindString(stripped); match != "" {
		return apperrors.Newf(apperrors.ErrTypeValidation,
			"statement contains forbidden keyword: %s", strings.ToUpper(match))
	}

	// CTE names act as tables for the rest of the statement.
	ctes := map[string]bool{}
	for _, match := range ctePattern.FindAllStringSubmatch(stripped, -1) {
		ctes[strings.ToLower(match[1])] = true
	}

	if err := validateTableRefs(stripped, desc, ctes); err != nil {
		return err
	}

	return validateIdentifiers(stripped, desc, ctes)
}

func validateTableRefs(sql string, desc *schema.Descriptor, ctes map[string]bool) error {
	for _, match := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		table := strings.Trim(match[1], `"`)
		if !desc.Knows(table) && !ctes[strings.ToLower(table)] {
			return apperrors.Newf(apperrors.ErrTypeValidation, "unknown table: %s", table)
		}
	}

	return nil
}

func validateIdentifiers(sql string, desc *schema.Descriptor, ctes map[string]bool) error {
	// Aliases and CTE names introduced by the statement itself are legal
	// identifiers for the rest of it.
	declared := make([]string, 0, len(ctes))
	for name := range ctes {
		declared = append(declared, name)
	}

	for _, match := range aliasPattern.FindAllStringSubmatch(sql, -1) {
		declared = append(declared, strings.Trim(match[1], `"`))
	}

	for _, match := range tableAliasPattern.FindAllStringSubmatch(sql, -1) {
		declared = append(declared, strings.Trim(match[1], `"`))
	}

	var candidates []string

	seen := map[string]bool{}

	for _, token := range identifierPattern.FindAllString(sql, -1) {
		lower := strings.ToLower(token)

		if sqlVocabulary[lower] || seen[lower] {
			continue
		}

		seen[lower] = true
		candidates = append(candidates, token)
	}

	if unknown := desc.UnknownColumns(candidates, declared); len(unknown) > 0 {
		return apperrors.New(apperrors.ErrTypeValidation,
			fmt.Sprintf("unknown columns: %s", strings.Join(unknown, ", ")))
	}

	return nil
}
