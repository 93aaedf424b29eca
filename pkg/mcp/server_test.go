package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/mcp/tools"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

type emptyDirectory struct{}

func (emptyDirectory) Get(ctx context.Context, id int64) (services.Database, error) {
	return nil, nil
}

func (emptyDirectory) List(ctx context.Context) []services.DatabaseInfo { return nil }

func testDeps() *tools.ToolDeps {
	return &tools.ToolDeps{
		Insights:  services.NewInsightsService(zap.NewNop()),
		Databases: emptyDirectory{},
		Version:   "1.0.0",
		Logger:    zap.NewNop(),
	}
}

func TestNewServer(t *testing.T) {
	logger := zap.NewNop()
	s := NewServer("1.0.0", testDeps(), nil, logger)

	if s == nil {
		t.Fatal("expected non-nil server")
	}
	if s.MCP() != s.mcp {
		t.Error("expected MCP() to return the internal mcp server")
	}
	if s.logger != logger {
		t.Error("expected logger to be set")
	}
}

func TestServer_RegistersTools(t *testing.T) {
	s := NewServer("1.0.0", testDeps(), NewToolAuditor(zap.NewNop()), zap.NewNop())

	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	found := map[string]bool{}
	for _, tool := range response.Result.Tools {
		found[tool.Name] = true
	}
	for _, name := range []string{"health", "query_estimator.estimate", "query_insights.get_metadata"} {
		if !found[name] {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestServer_InitializeReportsName(t *testing.T) {
	s := NewServer("2.3.4", testDeps(), nil, zap.NewNop())

	request := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`
	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(), []byte(request)))
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Result.ServerInfo.Name != ServerName {
		t.Errorf("expected server name %q, got %q", ServerName, response.Result.ServerInfo.Name)
	}
	if response.Result.ServerInfo.Version != "2.3.4" {
		t.Errorf("expected version 2.3.4, got %q", response.Result.ServerInfo.Version)
	}
}

func TestServer_NewStreamableHTTPServer(t *testing.T) {
	s := NewServer("1.0.0", testDeps(), nil, zap.NewNop())

	if s.NewStreamableHTTPServer() == nil {
		t.Fatal("expected non-nil HTTP server")
	}
}
