package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// InsightsRequest is the body of POST /api/v1/query_insights/metadata.
type InsightsRequest struct {
	SQL           string `json:"sql"`
	DefaultSchema string `json:"default_schema"`
}

// InsightsHandler serves table metadata for a query.
type InsightsHandler struct {
	insights services.InsightsService
	logger   *zap.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insights services.InsightsService, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{
		insights: insights,
		logger:   logger,
	}
}

// RegisterRoutes registers the insights endpoints.
func (h *InsightsHandler) RegisterRoutes(mux *http.ServeMux, identify func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/v1/query_insights/metadata", identify(h.Metadata))
}

// Metadata handles POST /api/v1/query_insights/metadata.
func (h *InsightsHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	h.logger.Info(fmt.Sprintf("Query insights requested - schema: %s, sql length: %d", req.DefaultSchema, len(req.SQL)))

	result, err := h.insights.GetQueryMetadata(r.Context(), req.SQL, req.DefaultSchema)
	if err != nil {
		h.logger.Error("Exception generating query insights", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "insights_failed", "Error generating query insights: "+err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ResultResponse{Result: result}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
