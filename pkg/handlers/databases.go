package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// DatabasesResponse lists the analytic databases a query can be estimated against.
type DatabasesResponse struct {
	Databases []services.DatabaseInfo `json:"databases"`
}

// DatabasesHandler exposes the configured datasource catalog.
type DatabasesHandler struct {
	databases services.DatabaseDirectory
	logger    *zap.Logger
}

// NewDatabasesHandler creates a new databases handler.
func NewDatabasesHandler(databases services.DatabaseDirectory, logger *zap.Logger) *DatabasesHandler {
	return &DatabasesHandler{
		databases: databases,
		logger:    logger,
	}
}

// RegisterRoutes registers the catalog endpoint.
func (h *DatabasesHandler) RegisterRoutes(mux *http.ServeMux, identify func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/v1/databases", identify(h.List))
}

// List handles GET /api/v1/databases.
func (h *DatabasesHandler) List(w http.ResponseWriter, r *http.Request) {
	databases := h.databases.List(r.Context())
	if databases == nil {
		databases = []services.DatabaseInfo{}
	}

	if err := WriteJSON(w, http.StatusOK, DatabasesResponse{Databases: databases}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
