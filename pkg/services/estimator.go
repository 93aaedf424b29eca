package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
	"github.com/ekaya-inc/query-estimator/pkg/audit"
	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/logging"
	sqlutil "github.com/ekaya-inc/query-estimator/pkg/sql"
)

// EstimateRequest identifies the query to estimate and where to plan it.
type EstimateRequest struct {
	SQL        string `json:"sql"`
	DatabaseID int64  `json:"databaseId"`
	Catalog    string `json:"catalog,omitempty"`
	Schema     string `json:"schema,omitempty"`
}

// UnsupportedEngineError is returned for databases whose engine has no parser.
type UnsupportedEngineError struct {
	Backend string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("Query estimation is not supported for this database type (%s). Supported: Trino, PostgreSQL", e.Backend)
}

func (e *UnsupportedEngineError) Unwrap() error { return apperrors.ErrUnsupportedEngine }

// ExecutionError is returned when the engine rejects the EXPLAIN statement or
// answers without a plan.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return apperrors.ErrExecution }

// requestError carries a client-facing message verbatim and unwraps to the
// sentinel that decides the status code.
type requestError struct {
	message string
	kind    error
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return e.kind }

func invalidInput(message string) error {
	return &requestError{message: message, kind: apperrors.ErrInvalidInput}
}

// EstimatorService runs EXPLAIN against a catalog database and turns the plan
// into a resource estimate.
type EstimatorService interface {
	Estimate(ctx context.Context, req EstimateRequest) (*estimator.EstimationResult, error)
}

type estimatorService struct {
	databases  DatabaseDirectory
	parserOpts []estimator.Option
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
}

// NewEstimatorService creates an estimator. parserOpts are applied to every
// parser it builds, after the service's own logger.
func NewEstimatorService(databases DatabaseDirectory, logger *zap.Logger, parserOpts ...estimator.Option) EstimatorService {
	logger = logger.Named("estimator-service")
	return &estimatorService{
		databases:  databases,
		parserOpts: append([]estimator.Option{estimator.WithLogger(logger)}, parserOpts...),
		auditor:    audit.NewSecurityAuditor(logger),
		logger:     logger,
	}
}

var _ EstimatorService = (*estimatorService)(nil)

func (s *estimatorService) Estimate(ctx context.Context, req EstimateRequest) (*estimator.EstimationResult, error) {
	if req.SQL == "" {
		return nil, invalidInput("SQL query is required")
	}
	if req.DatabaseID == 0 {
		return nil, invalidInput("Database ID is required")
	}

	validated := sqlutil.ValidateAndNormalize(req.SQL)
	if validated.Error != nil {
		s.auditor.LogStatementRejected(ctx, req.DatabaseID, validated.Error.Error())
		return nil, invalidInput(validated.Error.Error())
	}
	if validated.NormalizedSQL == "" {
		return nil, invalidInput("SQL query is required")
	}

	if failures := sqlutil.CheckAllParameters(map[string]any{
		"catalog": req.Catalog,
		"schema":  req.Schema,
	}); len(failures) > 0 {
		for _, f := range failures {
			value, _ := f.ParamValue.(string)
			s.auditor.LogInjectionAttempt(ctx, req.DatabaseID, audit.InjectionDetails{
				ParamName:   f.ParamName,
				ParamValue:  value,
				Fingerprint: f.Fingerprint,
			})
		}
		return nil, invalidInput(fmt.Sprintf("invalid %s name", failures[0].ParamName))
	}

	db, err := s.databases.Get(ctx, req.DatabaseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &requestError{message: "Database not found", kind: apperrors.ErrNotFound}
		}
		return nil, fmt.Errorf("failed to resolve database %d: %w", req.DatabaseID, err)
	}

	engine := estimator.DetectEngineType(db.Backend())
	if engine == estimator.EngineUnknown {
		return nil, &UnsupportedEngineError{Backend: db.Backend()}
	}

	parser := estimator.GetParser(engine, s.parserOpts...)

	s.logger.Info(fmt.Sprintf("Executing EXPLAIN for database %s (engine: %s)", db.Name(), engine),
		zap.Int64("database_id", db.ID()),
		zap.String("sql", logging.SanitizeQuery(validated.NormalizedSQL)))

	result, err := db.Execute(ctx, parser.ExplainSQL(validated.NormalizedSQL), datasource.QueryOptions{
		Catalog: req.Catalog,
		Schema:  req.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute EXPLAIN: %w", err)
	}

	if !result.Succeeded() {
		message := "EXPLAIN query failed"
		if result != nil && result.ErrorMessage != "" {
			message = result.ErrorMessage
		}
		s.logger.Warn("EXPLAIN rejected by engine",
			zap.Int64("database_id", db.ID()),
			zap.String("error", logging.SanitizeQuery(message)))
		return nil, &ExecutionError{Message: message}
	}

	if len(result.Statements) == 0 || result.Statements[0].Data == nil || len(result.Statements[0].Data.Rows) == 0 {
		return nil, &ExecutionError{Message: "No EXPLAIN output received"}
	}

	data := result.Statements[0].Data
	estimate := parser.Parse(estimator.RowsOutput(data.Columns, data.Records()), data.String())

	s.logger.Info(fmt.Sprintf("Estimation complete: level=%s, warnings=%d", estimate.ResourceLevel, len(estimate.Warnings)),
		zap.Int64("database_id", db.ID()))
	s.auditor.LogEstimate(ctx, db.ID(), audit.EstimateDetails{
		Engine:        string(engine),
		ResourceLevel: string(estimate.ResourceLevel),
		Warnings:      len(estimate.Warnings),
	})

	return estimate, nil
}
