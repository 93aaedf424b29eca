package datasource

import (
	"context"
	"fmt"
)

// DatasourceAdapterFactory creates executors from the registry.
type DatasourceAdapterFactory interface {
	// NewExecutor opens an executor for the given datasource type.
	NewExecutor(ctx context.Context, dsType string, config map[string]any) (Executor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	pool PoolOptions
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
func NewDatasourceAdapterFactory(pool PoolOptions) DatasourceAdapterFactory {
	return &registryFactory{pool: pool}
}

func (f *registryFactory) NewExecutor(ctx context.Context, dsType string, config map[string]any) (Executor, error) {
	factory := GetExecutorFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", dsType)
	}
	return factory(ctx, config, f.pool)
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
