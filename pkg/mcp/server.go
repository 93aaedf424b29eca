package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/mcp/tools"
)

// ServerName identifies this service to MCP clients.
const ServerName = "query-estimator"

// Server is the MCP endpoint exposing the estimator and insights tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with every tool registered. Tool calls are
// audited through auditor's hooks when auditor is non-nil.
func NewServer(version string, deps *tools.ToolDeps, auditor *ToolAuditor, logger *zap.Logger) *Server {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if auditor != nil {
		opts = append(opts, server.WithHooks(auditor.Hooks()))
	}

	mcpServer := server.NewMCPServer(ServerName, version, opts...)
	tools.RegisterAll(mcpServer, deps)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
