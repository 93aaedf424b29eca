package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used to run a statement.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor runs statements on a PostgreSQL pool. json columns, such as the
// output of EXPLAIN (FORMAT JSON), arrive already decoded.
type Executor struct {
	pool          *pgxpool.Pool
	defaultSchema string
}

// NewExecutor opens a pool sized by opts.
func NewExecutor(ctx context.Context, cfg *Config, opts datasource.PoolOptions) (*Executor, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	if opts.MaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Executor{pool: pool, defaultSchema: cfg.Schema}, nil
}

// Execute runs sql. A schema, from opts or the config default, is applied with
// a transaction-local search_path so pooled connections are left untouched.
func (e *Executor) Execute(ctx context.Context, sql string, opts datasource.QueryOptions) (*datasource.ExecutionResult, error) {
	schema := opts.Schema
	if schema == "" {
		schema = e.defaultSchema
	}
	if schema == "" {
		return e.run(ctx, e.pool, sql)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", schema); err != nil {
		return datasource.Failed(errorMessage(err)), nil
	}
	return e.run(ctx, tx, sql)
}

func (e *Executor) run(ctx context.Context, q querier, sql string) (*datasource.ExecutionResult, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return datasource.Failed(errorMessage(err)), nil
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := &datasource.Table{Columns: make([]string, len(fields)), Rows: [][]any{}}
	for i, fd := range fields {
		table.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return datasource.Failed(errorMessage(err)), nil
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return datasource.Failed(errorMessage(err)), nil
	}

	return datasource.Succeeded(sql, table), nil
}

// errorMessage prefers the server's message over pgx's wrapped error text.
func errorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}

func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *Executor) Close() error {
	e.pool.Close()
	return nil
}

var _ datasource.Executor = (*Executor)(nil)
