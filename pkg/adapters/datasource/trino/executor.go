package trino

import (
	"database/sql"
	"fmt"

	_ "github.com/trinodb/trino-go-client/trino" // registers the "trino" driver

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
)

// Session headers the trino driver lifts out of named query arguments.
const (
	catalogHeader = "X-Trino-Catalog"
	schemaHeader  = "X-Trino-Schema"
)

// NewExecutor opens a database/sql handle on the Trino coordinator. Trino's
// client protocol is stateless HTTP, so the pool only bounds concurrency.
func NewExecutor(cfg *Config, opts datasource.PoolOptions) (*datasource.SQLExecutor, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("trino", dsn)
	if err != nil {
		return nil, fmt.Errorf("open trino connection: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(int(opts.MaxConns))
	}
	if opts.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxIdleTime)
	}

	return datasource.NewSQLExecutor(db, sessionArgs), nil
}

// sessionArgs overrides the connection's catalog and schema for one statement.
func sessionArgs(opts datasource.QueryOptions) []any {
	var args []any
	if opts.Catalog != "" {
		args = append(args, sql.Named(catalogHeader, opts.Catalog))
	}
	if opts.Schema != "" {
		args = append(args, sql.Named(schemaHeader, opts.Schema))
	}
	return args
}
