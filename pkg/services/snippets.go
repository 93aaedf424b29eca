package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
	"github.com/ekaya-inc/query-estimator/pkg/repositories"
)

// SnippetService manages the SQL editor snippets a user keeps between sessions.
// Snippets are opaque to the service; only the list shape is enforced.
type SnippetService interface {
	// Get returns the user's snippets, an empty list if none were saved.
	Get(ctx context.Context, userID string) ([]json.RawMessage, error)
	Save(ctx context.Context, userID string, snippets []json.RawMessage) error
}

type snippetService struct {
	repo   repositories.SnippetRepository
	logger *zap.Logger
}

func NewSnippetService(repo repositories.SnippetRepository, logger *zap.Logger) SnippetService {
	return &snippetService{
		repo:   repo,
		logger: logger.Named("snippet-service"),
	}
}

var _ SnippetService = (*snippetService)(nil)

func (s *snippetService) Get(ctx context.Context, userID string) ([]json.RawMessage, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	doc, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load snippets",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	snippets := []json.RawMessage{}
	if doc == nil {
		return snippets, nil
	}
	if err := json.Unmarshal(doc, &snippets); err != nil {
		return nil, fmt.Errorf("failed to decode snippets for user %s: %w", userID, err)
	}
	return snippets, nil
}

func (s *snippetService) Save(ctx context.Context, userID string, snippets []json.RawMessage) error {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	if snippets == nil {
		snippets = []json.RawMessage{}
	}

	doc, err := json.Marshal(snippets)
	if err != nil {
		return fmt.Errorf("failed to encode snippets: %w", err)
	}

	if err := s.repo.Save(ctx, userID, doc); err != nil {
		s.logger.Error("Failed to save snippets",
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}

	s.logger.Debug("Saved snippets",
		zap.String("user_id", userID),
		zap.Int("count", len(snippets)))
	return nil
}
