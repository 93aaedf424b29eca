package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
	"github.com/ekaya-inc/query-estimator/pkg/logging"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// EstimatorHandler serves query cost estimation.
type EstimatorHandler struct {
	estimator services.EstimatorService
	logger    *zap.Logger
}

// NewEstimatorHandler creates a new estimator handler.
func NewEstimatorHandler(estimator services.EstimatorService, logger *zap.Logger) *EstimatorHandler {
	return &EstimatorHandler{
		estimator: estimator,
		logger:    logger,
	}
}

// RegisterRoutes registers the estimator endpoints.
func (h *EstimatorHandler) RegisterRoutes(mux *http.ServeMux, identify func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/v1/query_estimator/estimate", identify(h.Estimate))
}

// Estimate handles POST /api/v1/query_estimator/estimate.
// Body: {"sql": "...", "databaseId": 1, "catalog": "...", "schema": "..."}
func (h *EstimatorHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req services.EstimateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	result, err := h.estimator.Estimate(r.Context(), req)
	if err != nil {
		h.writeEstimateError(w, req, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ResultResponse{Result: result}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *EstimatorHandler) writeEstimateError(w http.ResponseWriter, req services.EstimateRequest, err error) {
	status, code, message := http.StatusInternalServerError, "estimate_failed", logging.SanitizeError(err)

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, apperrors.ErrUnsupportedEngine):
		status, code, message = http.StatusBadRequest, "unsupported_engine", err.Error()
	case errors.Is(err, apperrors.ErrExecution):
		code = "explain_failed"
		h.logger.Error("EXPLAIN failed",
			zap.Int64("database_id", req.DatabaseID),
			zap.String("error", message))
	default:
		h.logger.Error("Error estimating query",
			zap.Int64("database_id", req.DatabaseID),
			zap.String("error", message))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
