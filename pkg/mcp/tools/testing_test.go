package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

type fakeEstimator struct {
	result *estimator.EstimationResult
	err    error
	reqs   []services.EstimateRequest
}

func (f *fakeEstimator) Estimate(ctx context.Context, req services.EstimateRequest) (*estimator.EstimationResult, error) {
	f.reqs = append(f.reqs, req)
	return f.result, f.err
}

type fakeInsights struct {
	result *services.QueryInsights
	err    error
	calls  [][2]string
}

func (f *fakeInsights) GetQueryMetadata(ctx context.Context, sql string, defaultSchema string) (*services.QueryInsights, error) {
	f.calls = append(f.calls, [2]string{sql, defaultSchema})
	return f.result, f.err
}

type fakeDirectory []services.DatabaseInfo

func (f fakeDirectory) Get(ctx context.Context, id int64) (services.Database, error) {
	return nil, fmt.Errorf("not used")
}

func (f fakeDirectory) List(ctx context.Context) []services.DatabaseInfo { return f }

type toolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool sends a tools/call request through the server and decodes the reply.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()

	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), request))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected protocol error")
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}

func (r toolResponse) errorResponse(t *testing.T) ErrorResponse {
	t.Helper()
	require.True(t, r.Result.IsError, "expected an error result")
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(r.text(t)), &resp))
	return resp
}

func newToolServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}
