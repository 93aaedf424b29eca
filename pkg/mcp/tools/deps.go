// Package tools provides the MCP tools exposed by query-estimator.
package tools

import (
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// ToolDeps contains dependencies for MCP tools.
type ToolDeps struct {
	Estimator services.EstimatorService
	Insights  services.InsightsService
	Databases services.DatabaseDirectory
	Version   string
	Logger    *zap.Logger

	// Now stamps tool envelopes. Defaults to time.Now.
	Now func() time.Time
}

func (d *ToolDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// toolAdder is the part of *server.MCPServer the tools need.
type toolAdder interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// RegisterAll adds every query-estimator tool to s.
func RegisterAll(s toolAdder, deps *ToolDeps) {
	RegisterHealthTool(s, deps.Version, deps.Databases)
	RegisterEstimatorTools(s, deps)
	RegisterInsightsTools(s, deps)
}
