package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

type healthResult struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Databases int    `json:"databases"`
	Estimable int    `json:"estimable"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool reports the server version and how many catalog databases can
// be estimated.
func RegisterHealthTool(s toolAdder, version string, databases services.DatabaseDirectory) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if databases != nil {
			for _, db := range databases.List(ctx) {
				result.Databases++
				if db.Estimable {
					result.Estimable++
				}
			}
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
