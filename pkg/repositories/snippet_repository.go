package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/query-estimator/pkg/database"
)

// SnippetRepository stores each user's editor snippets as one JSON document.
type SnippetRepository interface {
	// Get returns the stored document, or nil if the user has saved nothing.
	Get(ctx context.Context, userID string) (json.RawMessage, error)

	// Save replaces the user's document, creating it on first save.
	Save(ctx context.Context, userID string, snippets json.RawMessage) error
}

// snippetRepository implements SnippetRepository using PostgreSQL.
type snippetRepository struct {
	db *database.DB
}

// NewSnippetRepository creates a new snippet repository.
func NewSnippetRepository(db *database.DB) SnippetRepository {
	return &snippetRepository{db: db}
}

func (r *snippetRepository) Get(ctx context.Context, userID string) (json.RawMessage, error) {
	query := `
		SELECT snippets
		FROM editor_snippets
		WHERE user_id = $1`

	var snippets []byte
	err := r.db.QueryRow(ctx, query, userID).Scan(&snippets)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snippets: %w", err)
	}

	return json.RawMessage(snippets), nil
}

func (r *snippetRepository) Save(ctx context.Context, userID string, snippets json.RawMessage) error {
	query := `
		INSERT INTO editor_snippets (id, user_id, snippets)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET snippets = EXCLUDED.snippets, updated_at = now()`

	if _, err := r.db.Exec(ctx, query, uuid.New(), userID, []byte(snippets)); err != nil {
		return fmt.Errorf("failed to save snippets: %w", err)
	}

	return nil
}
