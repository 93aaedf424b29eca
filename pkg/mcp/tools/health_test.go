package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

func TestRegisterHealthTool_Listed(t *testing.T) {
	s := newToolServer()
	RegisterHealthTool(s, "test-version", nil)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))
	require.Len(t, response.Result.Tools, 1)
	assert.Equal(t, "health", response.Result.Tools[0].Name)
	assert.Equal(t, "Returns server health status and version", response.Result.Tools[0].Description)
}

func TestHealthTool_CountsDatabases(t *testing.T) {
	s := newToolServer()
	RegisterHealthTool(s, "1.2.3", fakeDirectory{
		{ID: 1, Backend: "trino", Estimable: true},
		{ID: 2, Backend: "postgres", Estimable: true},
		{ID: 3, Backend: "mssql"},
	})

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "health", nil).text(t)), &health))
	assert.Equal(t, healthResult{Status: "ok", Version: "1.2.3", Databases: 3, Estimable: 2}, health)
}

func TestHealthTool_VersionWithSpecialChars(t *testing.T) {
	s := newToolServer()
	version := `1.0.0-beta"test`
	RegisterHealthTool(s, version, fakeDirectory{})

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "health", nil).text(t)), &health))
	assert.Equal(t, version, health.Version)
}

func TestRegisterAll(t *testing.T) {
	s := newToolServer()
	RegisterAll(s, &ToolDeps{Databases: fakeDirectory{}, Insights: &fakeInsights{}, Estimator: &fakeEstimator{}})

	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))

	names := []string{}
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"health",
		"query_estimator.estimate",
		"query_estimator.list_databases",
		"query_insights.get_metadata",
	}, names)
}

var _ services.DatabaseDirectory = fakeDirectory{}
