package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/insightx/upi-insight/internal/config"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/logging"
)

// Result holds the rows of an executed query. Truncated is set when the
// query matched more rows than the configured cap.
type Result struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated"`
}

// RowCount returns the number of rows retained in the result.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Executor runs validated read-only queries against the transactions
// database.
type Executor struct {
	db           *sql.DB
	queryTimeout time.Duration
	rowCap       int
}

// NewExecutor opens the dataset in read-only mode.
func NewExecutor(cfg config.DatasetConfig) (*Executor, error) {
	dsn := fmt.Sprintf("%s?access_mode=READ_ONLY", cfg.Path)

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to open dataset")
	}

	// Durations are validated at config load time.
	connLifetime, _ := time.ParseDuration(cfg.ConnMaxLifetime)
	queryTimeout, _ := time.ParseDuration(cfg.QueryTimeout)

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(connLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to connect to dataset").
			WithSuggestion("Check that the dataset file exists and is a valid DuckDB database")
	}

	return &Executor{
		db:           db,
		queryTimeout: queryTimeout,
		rowCap:       cfg.RowCap,
	}, nil
}

// newExecutorWithDB is used by tests to inject a database handle.
func newExecutorWithDB(db *sql.DB, queryTimeout time.Duration, rowCap int) *Executor {
	return &Executor{db: db, queryTimeout: queryTimeout, rowCap: rowCap}
}

// Execute runs one query with the configured timeout and row cap. It
// reads at most rowCap+1 rows so truncation is detected without pulling
// the full result set.
func (e *Executor) Execute(ctx context.Context, query string) (*Result, error) {
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "query execution failed")
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to read result columns")
	}

	result := &Result{Columns: columns, Rows: []map[string]any{}}

	for rows.Next() {
		if len(result.Rows) >= e.rowCap {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to scan result row")
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to iterate result rows")
	}

	logging.GetLogger().WithFields(map[string]interface{}{
		"rows":        len(result.Rows),
		"truncated":   result.Truncated,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Query executed")

	return result, nil
}

// normalizeValue converts driver-specific values into JSON-friendly ones.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return value
	}
}

// Close releases the dataset handle.
func (e *Executor) Close() error {
	return e.db.Close()
}
