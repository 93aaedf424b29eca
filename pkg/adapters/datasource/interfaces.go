package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Executor runs statements against one analytic database.
// Each implementation owns its connection pool and must be closed when done.
type Executor interface {
	// Execute runs sql and collects every row it returns. Errors reported by
	// the database are returned as a failed ExecutionResult; the error return
	// is reserved for failures to reach the database at all.
	Execute(ctx context.Context, sql string, opts QueryOptions) (*ExecutionResult, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}

// QueryOptions carries the optional namespace a statement runs in.
// Engines without catalogs ignore Catalog.
type QueryOptions struct {
	Catalog string
	Schema  string
}

// ExecutionStatus is the outcome of one Execute call.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
)

// ExecutionResult is what a database answered for one submitted statement.
type ExecutionResult struct {
	Status       ExecutionStatus   `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Statements   []StatementResult `json:"statements"`
}

// StatementResult holds the output of a single statement. Data is nil for
// statements that produce no result set.
type StatementResult struct {
	SQL  string `json:"sql"`
	Data *Table `json:"data"`
}

// Succeeded reports whether the database accepted the statement.
func (r *ExecutionResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Failed builds a failed result carrying the database's message.
func Failed(message string) *ExecutionResult {
	return &ExecutionResult{Status: StatusFailed, ErrorMessage: message}
}

// Succeeded builds a successful single-statement result.
func Succeeded(sql string, data *Table) *ExecutionResult {
	return &ExecutionResult{
		Status:     StatusSuccess,
		Statements: []StatementResult{{SQL: sql, Data: data}},
	}
}

// Table is a tabular result set. Rows are positional and line up with Columns.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Records returns the rows keyed by column name.
func (t *Table) Records() []map[string]any {
	if t == nil {
		return nil
	}
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}
	return records
}

// String renders the table as plain text: one tab-separated line per row.
// A single-column result, the usual EXPLAIN shape, renders as its values alone.
func (t *Table) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	if len(t.Columns) > 1 {
		b.WriteString(strings.Join(t.Columns, "\t"))
	}
	for _, row := range t.Rows {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		b.WriteString(strings.Join(cells, "\t"))
	}
	return b.String()
}

func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case map[string]any, []any:
		// decoded json columns render back as json
		if data, err := json.Marshal(s); err == nil {
			return string(data)
		}
		return fmt.Sprint(s)
	default:
		return fmt.Sprint(s)
	}
}
