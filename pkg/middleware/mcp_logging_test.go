package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveMCP(t *testing.T, reqBody, respBody string) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	MCPRequestLogger(zap.New(core))(handler).ServeHTTP(httptest.NewRecorder(), req)
	return logs
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"query_estimator.estimate","arguments":{"sql":"SELECT *\n  FROM orders","database_id":3}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len(), "Should log request and response")

		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "query_estimator.estimate", requestLog.ContextMap()["tool"])

		args, ok := requestLog.ContextMap()["arguments"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "SELECT * FROM orders", args["sql"])
		assert.Equal(t, float64(3), args["database_id"])

		assert.Equal(t, "MCP response success", logs.All()[1].Message)
	})

	t.Run("logs protocol error", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"unknown_tool"}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"tool not found"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "tool not found", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool error result", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"query_estimator.estimate","arguments":{}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"{\"error\":true}"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("invalid request json still served", func(t *testing.T) {
		logs := serveMCP(t, `not json`, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`)

		messages := make([]string, 0, logs.Len())
		for _, e := range logs.All() {
			messages = append(messages, e.Message)
		}
		assert.Contains(t, messages, "Failed to parse MCP request JSON")
		assert.Contains(t, messages, "MCP response error")
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		called := false
		handler := MCPRequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))
		assert.True(t, called)
	})
}

func TestSanitizeArguments(t *testing.T) {
	long := strings.Repeat("a", 250)

	got := sanitizeArguments(map[string]any{
		"sql":            "SELECT 1\nFROM t WHERE password=hunter2",
		"api_key":        "abc",
		"client_secret":  "xyz",
		"default_schema": long,
		"database_id":    float64(4),
	})

	assert.Equal(t, "SELECT 1 FROM t WHERE password=[REDACTED]", got["sql"])
	assert.Equal(t, "[REDACTED]", got["api_key"])
	assert.Equal(t, "[REDACTED]", got["client_secret"])
	assert.Equal(t, strings.Repeat("a", 200)+"...", got["default_schema"])
	assert.Equal(t, float64(4), got["database_id"])

	assert.Nil(t, sanitizeArguments(nil))
}
