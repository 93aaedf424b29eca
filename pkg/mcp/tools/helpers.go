package tools

import (
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(val)
}

// getOptionalFloat extracts an optional numeric argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

// getRequiredID extracts a positive whole-number id. JSON numbers arrive as
// float64, so fractional values are rejected explicitly.
func getRequiredID(req mcp.CallToolRequest, key string) (int64, bool) {
	val, ok := getOptionalFloat(req, key)
	if !ok || val <= 0 || val != math.Trunc(val) || val > math.MaxInt64 {
		return 0, false
	}
	return int64(val), true
}
