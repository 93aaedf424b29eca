package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// insightsEnvelope wraps insight results with a status and a UTC timestamp.
// Failures are reported in the envelope rather than as tool errors.
type insightsEnvelope struct {
	Status    string                  `json:"status"`
	Result    *services.QueryInsights `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Timestamp string                  `json:"timestamp"`
}

// RegisterInsightsTools adds the table metadata tool.
func RegisterInsightsTools(s toolAdder, deps *ToolDeps) {
	tool := mcp.NewTool(
		"query_insights.get_metadata",
		mcp.WithDescription("Get metadata insights for tables referenced in a SQL query. Returns information about each table including description, data quality score, latest partition, retention period, owner team, and example queries."),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The SQL query to analyze for table metadata insights"),
		),
		mcp.WithString(
			"default_schema",
			mcp.Description("The default schema to use when resolving table names"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult(CodeInvalidParameters, err.Error()), nil
		}
		schema := getOptionalString(req, "default_schema")

		deps.Logger.Info(fmt.Sprintf("MCP tool query_insights.get_metadata called - schema: %s, sql length: %d", schema, len(sql)))

		envelope := insightsEnvelope{Status: "success"}
		insights, err := deps.Insights.GetQueryMetadata(ctx, sql, schema)
		if err != nil {
			deps.Logger.Error("Error in query_insights.get_metadata", zap.Error(err))
			envelope = insightsEnvelope{Status: "error", Error: err.Error()}
		} else {
			envelope.Result = insights
		}
		envelope.Timestamp = deps.now().UTC().Format(time.RFC3339Nano)

		jsonResult, err := json.Marshal(envelope)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal insights: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
