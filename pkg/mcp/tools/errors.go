package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as tool output so the calling model sees the details
// instead of a bare protocol error.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use it for errors the caller can act on, such as bad parameters or an
// unknown database. Infrastructure failures are returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// Error codes returned by the estimator tools.
const (
	CodeInvalidParameters = "invalid_parameters"
	CodeInvalidInput      = "invalid_input"
	CodeDatabaseNotFound  = "database_not_found"
	CodeUnsupportedEngine = "unsupported_engine"
	CodeExplainFailed     = "explain_failed"
)

// errorCode maps a service error onto a tool error code. It returns "" for
// errors the caller cannot fix.
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, apperrors.ErrNotFound):
		return CodeDatabaseNotFound
	case errors.Is(err, apperrors.ErrUnsupportedEngine):
		return CodeUnsupportedEngine
	case errors.Is(err, apperrors.ErrExecution):
		return CodeExplainFailed
	default:
		return ""
	}
}

// AsErrorResult converts an actionable service error into a tool result.
// It returns nil when err should be surfaced as a protocol error instead.
func AsErrorResult(err error) *mcp.CallToolResult {
	code := errorCode(err)
	if code == "" {
		return nil
	}
	return NewErrorResult(code, err.Error())
}
