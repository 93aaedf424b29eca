package trino

import (
	"context"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "trino",
			DisplayName: "Trino",
			Description: "Connect to a Trino or Presto coordinator over HTTP(S)",
		},
		ExecutorFactory: func(ctx context.Context, config map[string]any, opts datasource.PoolOptions) (datasource.Executor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewExecutor(cfg, opts)
		},
	})
}
