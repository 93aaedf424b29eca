package mssql

import (
	"context"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
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
