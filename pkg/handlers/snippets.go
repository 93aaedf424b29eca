package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/auth"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// SnippetsResponse is both the GET response and the PUT body for editor snippets.
type SnippetsResponse struct {
	Snippets []json.RawMessage `json:"snippets"`
}

// MessageResponse is a bare {"message": ...} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// SnippetsHandler stores the SQL editor snippets of the calling user.
type SnippetsHandler struct {
	snippets services.SnippetService
	logger   *zap.Logger
}

// NewSnippetsHandler creates a new snippets handler.
func NewSnippetsHandler(snippets services.SnippetService, logger *zap.Logger) *SnippetsHandler {
	return &SnippetsHandler{
		snippets: snippets,
		logger:   logger,
	}
}

// RegisterRoutes registers the snippet endpoints. identify attaches the caller's
// claims when present; the handlers answer 401 for anonymous callers.
func (h *SnippetsHandler) RegisterRoutes(mux *http.ServeMux, identify func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/v1/editor_snippets/", identify(h.Get))
	mux.HandleFunc("PUT /api/v1/editor_snippets/", identify(h.Save))
}

// Get handles GET /api/v1/editor_snippets/.
func (h *SnippetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	snippets, err := h.snippets.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load snippets", zap.String("user_id", userID), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "load_failed", "Failed to load snippets"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, SnippetsResponse{Snippets: snippets}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Save handles PUT /api/v1/editor_snippets/ and replaces the user's list.
func (h *SnippetsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req SnippetsResponse
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.snippets.Save(r.Context(), userID, req.Snippets); err != nil {
		h.logger.Error("Failed to save snippets", zap.String("user_id", userID), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "save_failed", "Failed to save snippets"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, MessageResponse{Message: "Snippets saved"}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *SnippetsHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.GetUserIDFromContext(r.Context())
	if userID == "" {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "User not authenticated"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return userID, true
}
