package tools

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

func newEstimatorTestServer(est *fakeEstimator, dbs fakeDirectory) *server.MCPServer {
	s := newToolServer()
	RegisterEstimatorTools(s, &ToolDeps{Estimator: est, Databases: dbs, Logger: zap.NewNop()})
	return s
}

func TestEstimateTool_Success(t *testing.T) {
	rows := int64(42)
	est := &fakeEstimator{result: &estimator.EstimationResult{
		ResourceLevel: estimator.ResourceLow,
		Metrics:       estimator.NewMetrics(nil, nil, nil, &rows, nil),
		Warnings:      []estimator.Warning{},
		EngineType:    estimator.EngineTrino,
	}}
	s := newEstimatorTestServer(est, nil)

	resp := callTool(t, s, "query_estimator.estimate", map[string]any{
		"sql":         "SELECT 1",
		"database_id": 7,
		"catalog":     "hive",
		"schema":      " sales ",
	})
	require.False(t, resp.Result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &body))
	assert.Equal(t, "low", body["resourceLevel"])
	assert.Equal(t, "trino", body["engineType"])
	assert.Equal(t, "42", body["metrics"].(map[string]any)["rowsLabel"])

	require.Len(t, est.reqs, 1)
	assert.Equal(t, services.EstimateRequest{SQL: "SELECT 1", DatabaseID: 7, Catalog: "hive", Schema: "sales"}, est.reqs[0])
}

func TestEstimateTool_InvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing sql", map[string]any{"database_id": 1}},
		{"missing database", map[string]any{"sql": "SELECT 1"}},
		{"fractional database", map[string]any{"sql": "SELECT 1", "database_id": 1.5}},
		{"negative database", map[string]any{"sql": "SELECT 1", "database_id": -3}},
		{"string database", map[string]any{"sql": "SELECT 1", "database_id": "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := &fakeEstimator{}
			s := newEstimatorTestServer(est, nil)

			errResp := callTool(t, s, "query_estimator.estimate", tt.args).errorResponse(t)
			assert.Equal(t, CodeInvalidParameters, errResp.Code)
			assert.Empty(t, est.reqs)
		})
	}
}

func TestEstimateTool_ServiceErrors(t *testing.T) {
	est := &fakeEstimator{err: &services.UnsupportedEngineError{Backend: "mssql"}}
	s := newEstimatorTestServer(est, nil)

	errResp := callTool(t, s, "query_estimator.estimate", map[string]any{
		"sql": "SELECT 1", "database_id": 3,
	}).errorResponse(t)

	assert.Equal(t, CodeUnsupportedEngine, errResp.Code)
	assert.Contains(t, errResp.Message, "(mssql)")
}

func TestEstimateTool_InfrastructureErrorIsProtocolError(t *testing.T) {
	est := &fakeEstimator{err: errors.New("dial tcp: connection refused")}
	s := newEstimatorTestServer(est, nil)

	resp := callTool(t, s, "query_estimator.estimate", map[string]any{
		"sql": "SELECT 1", "database_id": 3,
	})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "connection refused")
}

func TestListDatabasesTool(t *testing.T) {
	dbs := fakeDirectory{
		{ID: 1, Name: "Lake", Backend: "trino", Estimable: true},
		{ID: 3, Name: "Finance", Backend: "mssql", Estimable: false},
	}
	s := newEstimatorTestServer(&fakeEstimator{}, dbs)

	var body listDatabasesResult
	require.NoError(t, json.Unmarshal([]byte(callTool(t, s, "query_estimator.list_databases", nil).text(t)), &body))
	assert.Equal(t, []services.DatabaseInfo(dbs), body.Databases)
}
