package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerFake(t *testing.T, dsType string) *PoolOptions {
	t.Helper()
	var seen PoolOptions
	Register(DatasourceAdapterRegistration{
		Info: DatasourceAdapterInfo{Type: dsType, DisplayName: "Fake"},
		ExecutorFactory: func(ctx context.Context, config map[string]any, opts PoolOptions) (Executor, error) {
			seen = opts
			return &fakeExecutor{}, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, dsType)
		registryMu.Unlock()
	})
	return &seen
}

func TestRegistryFactory_NewExecutor(t *testing.T) {
	seen := registerFake(t, "fake-factory")
	factory := NewDatasourceAdapterFactory(PoolOptions{MaxConns: 3})

	exec, err := factory.NewExecutor(context.Background(), "fake-factory", map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, exec)
	assert.Equal(t, int32(3), seen.MaxConns)
}

func TestRegistryFactory_UnknownType(t *testing.T) {
	factory := NewDatasourceAdapterFactory(PoolOptions{})

	_, err := factory.NewExecutor(context.Background(), "does-not-exist", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported datasource type")
}

func TestRegisteredAdapters_Sorted(t *testing.T) {
	registerFake(t, "zz-fake")
	registerFake(t, "aa-fake")

	types := []string{}
	for _, info := range NewDatasourceAdapterFactory(PoolOptions{}).ListTypes() {
		types = append(types, info.Type)
	}

	assert.IsIncreasing(t, types)
	assert.True(t, IsRegistered("aa-fake"))
	assert.False(t, IsRegistered("nope"))
}
