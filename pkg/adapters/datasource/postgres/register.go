package postgres

import (
	"context"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		ExecutorFactory: func(ctx context.Context, config map[string]any, opts datasource.PoolOptions) (datasource.Executor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewExecutor(ctx, cfg, opts)
		},
	})
}
