package datasource

import (
	"context"
	"database/sql"
	"fmt"
)

// ArgsFunc turns QueryOptions into driver-specific query arguments, such as
// session headers passed as named arguments.
type ArgsFunc func(opts QueryOptions) []any

// SQLExecutor implements Executor on top of database/sql. Adapters whose
// driver registers with database/sql (trino, sqlserver) share it.
type SQLExecutor struct {
	db     *sql.DB
	argsOf ArgsFunc
}

// NewSQLExecutor wraps an open *sql.DB. argsOf may be nil when the driver has
// no per-statement options.
func NewSQLExecutor(db *sql.DB, argsOf ArgsFunc) *SQLExecutor {
	return &SQLExecutor{db: db, argsOf: argsOf}
}

func (e *SQLExecutor) Execute(ctx context.Context, query string, opts QueryOptions) (*ExecutionResult, error) {
	var args []any
	if e.argsOf != nil {
		args = e.argsOf(opts)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return Failed(err.Error()), nil
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return Failed(err.Error()), nil
	}
	return Succeeded(query, table), nil
}

// scanTable reads every row of a result set into a Table.
func scanTable(rows *sql.Rows) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	table := &Table{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			// drivers reuse byte buffers between rows
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}

func (e *SQLExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// DB returns the underlying handle.
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

var _ Executor = (*SQLExecutor)(nil)
