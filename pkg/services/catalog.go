package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
	"github.com/ekaya-inc/query-estimator/pkg/crypto"
	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/logging"
)

// Database is an analytic database queries can be explained against.
type Database interface {
	ID() int64
	Name() string
	// Backend is the engine identifier used for parser dispatch, e.g. "trino".
	Backend() string
	Execute(ctx context.Context, sql string, opts datasource.QueryOptions) (*datasource.ExecutionResult, error)
}

// DatabaseDirectory resolves database ids.
type DatabaseDirectory interface {
	// Get returns apperrors.ErrNotFound for unknown ids.
	Get(ctx context.Context, id int64) (Database, error)
	List(ctx context.Context) []DatabaseInfo
}

// DatabaseInfo is the public view of a catalog entry.
type DatabaseInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	Estimable bool   `json:"estimable"`
}

// DatabaseEntry is one database in the catalog file.
type DatabaseEntry struct {
	ID      int64  `yaml:"id"`
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
	// Type selects the datasource adapter. Derived from Backend when empty.
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

type catalogFile struct {
	Databases []DatabaseEntry `yaml:"databases"`
}

// LoadCatalogFile reads and validates the YAML datasource catalog. Sealed
// config values are decrypted with encryptor, which may be nil when the file
// holds no sealed values.
func LoadCatalogFile(path string, encryptor *crypto.CredentialEncryptor) ([]DatabaseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasource catalog: %w", err)
	}
	return ParseCatalog(data, encryptor)
}

// ParseCatalog parses catalog YAML.
func ParseCatalog(data []byte, encryptor *crypto.CredentialEncryptor) ([]DatabaseEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse datasource catalog: %w", err)
	}

	seen := make(map[int64]bool, len(file.Databases))
	for i := range file.Databases {
		entry := &file.Databases[i]
		switch {
		case entry.ID <= 0:
			return nil, fmt.Errorf("catalog entry %d: id must be positive", i)
		case seen[entry.ID]:
			return nil, fmt.Errorf("catalog entry %d: duplicate id %d", i, entry.ID)
		case entry.Name == "":
			return nil, fmt.Errorf("database %d: name is required", entry.ID)
		case entry.Backend == "":
			return nil, fmt.Errorf("database %d: backend is required", entry.ID)
		}
		seen[entry.ID] = true

		if entry.Type == "" {
			entry.Type = adapterTypeForBackend(entry.Backend)
		}
		if entry.Config == nil {
			entry.Config = map[string]any{}
		}
		if err := crypto.OpenConfigValues(encryptor, entry.Config); err != nil {
			return nil, fmt.Errorf("database %d: %w", entry.ID, err)
		}
	}
	return file.Databases, nil
}

// adapterTypeForBackend maps common backend spellings onto registered adapter types.
func adapterTypeForBackend(backend string) string {
	b := strings.ToLower(backend)
	switch {
	case strings.Contains(b, "trino"), strings.Contains(b, "presto"):
		return "trino"
	case strings.Contains(b, "postgres"), strings.Contains(b, "redshift"):
		return "postgres"
	case strings.Contains(b, "mssql"), strings.Contains(b, "sqlserver"):
		return "mssql"
	default:
		return b
	}
}

type databaseCatalog struct {
	entries        map[int64]*catalogDatabase
	order          []int64
	adapterFactory datasource.DatasourceAdapterFactory
	connMgr        *datasource.ConnectionManager
	breakerConfig  datasource.CircuitBreakerConfig
	logger         *zap.Logger
}

// CatalogOption configures NewDatabaseCatalog.
type CatalogOption func(*databaseCatalog)

// WithCircuitBreaker sets the per-database circuit breaker configuration.
func WithCircuitBreaker(cfg datasource.CircuitBreakerConfig) CatalogOption {
	return func(c *databaseCatalog) { c.breakerConfig = cfg }
}

// NewDatabaseCatalog builds a directory over the given entries. Executors are
// opened lazily through the connection manager on first Execute.
func NewDatabaseCatalog(
	entries []DatabaseEntry,
	adapterFactory datasource.DatasourceAdapterFactory,
	connMgr *datasource.ConnectionManager,
	logger *zap.Logger,
	opts ...CatalogOption,
) DatabaseDirectory {
	c := &databaseCatalog{
		entries:        make(map[int64]*catalogDatabase, len(entries)),
		adapterFactory: adapterFactory,
		connMgr:        connMgr,
		breakerConfig:  datasource.DefaultCircuitBreakerConfig(),
		logger:         logger.Named("database-catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, entry := range entries {
		c.entries[entry.ID] = &catalogDatabase{
			entry:   entry,
			catalog: c,
			breaker: datasource.NewCircuitBreaker(c.breakerConfig),
		}
		c.order = append(c.order, entry.ID)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	return c
}

var _ DatabaseDirectory = (*databaseCatalog)(nil)

func (c *databaseCatalog) Get(ctx context.Context, id int64) (Database, error) {
	db, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("database %d: %w", id, apperrors.ErrNotFound)
	}
	return db, nil
}

func (c *databaseCatalog) List(ctx context.Context) []DatabaseInfo {
	infos := make([]DatabaseInfo, 0, len(c.order))
	for _, id := range c.order {
		entry := c.entries[id].entry
		infos = append(infos, DatabaseInfo{
			ID:        entry.ID,
			Name:      entry.Name,
			Backend:   entry.Backend,
			Estimable: estimator.DetectEngineType(entry.Backend) != estimator.EngineUnknown,
		})
	}
	return infos
}

type catalogDatabase struct {
	entry   DatabaseEntry
	catalog *databaseCatalog
	breaker *datasource.CircuitBreaker
}

func (d *catalogDatabase) ID() int64       { return d.entry.ID }
func (d *catalogDatabase) Name() string    { return d.entry.Name }
func (d *catalogDatabase) Backend() string { return d.entry.Backend }

func (d *catalogDatabase) Execute(ctx context.Context, sql string, opts datasource.QueryOptions) (*datasource.ExecutionResult, error) {
	if err := d.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("database %d unavailable: %w", d.entry.ID, err)
	}

	key := strconv.FormatInt(d.entry.ID, 10)
	executor, err := d.catalog.connMgr.GetOrCreateExecutor(ctx, key, func(ctx context.Context) (datasource.Executor, error) {
		d.catalog.logger.Info("Opening datasource connection",
			zap.Int64("database_id", d.entry.ID),
			zap.String("type", d.entry.Type))
		return d.catalog.adapterFactory.NewExecutor(ctx, d.entry.Type, d.entry.Config)
	})
	if err != nil {
		d.recordOutcome(err)
		return nil, fmt.Errorf("failed to connect to database %d: %w", d.entry.ID, err)
	}

	result, err := executor.Execute(ctx, sql, opts)
	d.recordOutcome(err)
	return result, err
}

// recordOutcome feeds the breaker. A failed ExecutionResult comes back with a
// nil error and counts as success; cancellation by the caller is ignored.
func (d *catalogDatabase) recordOutcome(err error) {
	switch {
	case err == nil:
		d.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		d.breaker.RecordFailure()
		d.catalog.logger.Warn("Datasource execution error",
			zap.Int64("database_id", d.entry.ID),
			zap.String("circuit", d.breaker.State().String()),
			zap.String("error", logging.SanitizeError(err)))
	}
}
