package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/auth"
	"github.com/ekaya-inc/query-estimator/pkg/logging"
	"github.com/ekaya-inc/query-estimator/pkg/mcp/tools"
)

// ToolAuditor writes one structured log line per MCP tool call.
type ToolAuditor struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolAuditor creates a ToolAuditor.
func NewToolAuditor(logger *zap.Logger) *ToolAuditor {
	return &ToolAuditor{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolAuditor) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolAuditor) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *ToolAuditor) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := a.eventFields(ctx, id, req)

	if result == nil || !result.IsError {
		a.logger.Info("MCP tool call", append(fields, zap.Bool("success", true))...)
		return
	}

	code := errorCodeOf(result)
	fields = append(fields, zap.Bool("success", false), zap.String("error_code", code))
	if code == tools.CodeInvalidInput || code == tools.CodeInvalidParameters {
		// rejected parameters are worth a look; they include injection screening
		a.logger.Warn("MCP tool call rejected", fields...)
		return
	}
	a.logger.Info("MCP tool call", fields...)
}

func (a *ToolAuditor) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	fields := a.eventFields(ctx, id, req)
	a.logger.Error("MCP tool call failed", append(fields,
		zap.Bool("success", false),
		zap.String("error", logging.SanitizeError(err)))...)
}

func (a *ToolAuditor) eventFields(ctx context.Context, id any, req *mcplib.CallToolRequest) []zap.Field {
	start, ok := a.startTimes.LoadAndDelete(id)
	duration := time.Duration(0)
	if ok {
		duration = time.Since(start.(time.Time))
	}

	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Int64("duration_ms", duration.Milliseconds()),
	}
	if userID := auth.GetUserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if sql, ok := args["sql"].(string); ok {
			fields = append(fields, zap.String("sql", logging.SanitizeQuery(sql)))
		}
	}
	return fields
}

// errorCodeOf pulls the code out of a structured tool error result.
func errorCodeOf(result *mcplib.CallToolResult) string {
	for _, content := range result.Content {
		text, ok := content.(mcplib.TextContent)
		if !ok {
			continue
		}
		var resp tools.ErrorResponse
		if err := json.Unmarshal([]byte(text.Text), &resp); err == nil && resp.Code != "" {
			return resp.Code
		}
	}
	return "unknown"
}
