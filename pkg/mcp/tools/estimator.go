package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// RegisterEstimatorTools adds the query estimation tools.
func RegisterEstimatorTools(s toolAdder, deps *ToolDeps) {
	registerEstimateTool(s, deps)
	registerListDatabasesTool(s, deps)
}

func registerEstimateTool(s toolAdder, deps *ToolDeps) {
	tool := mcp.NewTool(
		"query_estimator.estimate",
		mcp.WithDescription(
			"Estimate the resources a SQL query will need before running it. "+
				"The query is planned with EXPLAIN on the target database but never executed. "+
				"Returns a resource level (low, medium, high, critical), metrics, warnings and the plan tree. "+
				"Supported engines: Trino, PostgreSQL."),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The single SQL statement to estimate"),
		),
		mcp.WithNumber(
			"database_id",
			mcp.Required(),
			mcp.Description("Id of the database to plan against (see query_estimator.list_databases)"),
		),
		mcp.WithString(
			"catalog",
			mcp.Description("Catalog to resolve unqualified tables in (Trino only)"),
		),
		mcp.WithString(
			"schema",
			mcp.Description("Schema to resolve unqualified tables in"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult(CodeInvalidParameters, err.Error()), nil
		}
		databaseID, ok := getRequiredID(req, "database_id")
		if !ok {
			return NewErrorResult(CodeInvalidParameters, "database_id must be a positive integer"), nil
		}

		estimate, err := deps.Estimator.Estimate(ctx, services.EstimateRequest{
			SQL:        sql,
			DatabaseID: databaseID,
			Catalog:    getOptionalString(req, "catalog"),
			Schema:     getOptionalString(req, "schema"),
		})
		if err != nil {
			if result := AsErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("query_estimator.estimate failed",
				zap.Int64("database_id", databaseID),
				zap.Error(err))
			return nil, err
		}

		jsonResult, err := json.Marshal(estimate)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal estimate: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

type listDatabasesResult struct {
	Databases []services.DatabaseInfo `json:"databases"`
}

func registerListDatabasesTool(s toolAdder, deps *ToolDeps) {
	tool := mcp.NewTool(
		"query_estimator.list_databases",
		mcp.WithDescription("List the databases queries can be estimated against. Only entries with estimable=true are accepted by query_estimator.estimate."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonResult, err := json.Marshal(listDatabasesResult{Databases: deps.Databases.List(ctx)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal databases: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
