//go:build integration

package repositories

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/query-estimator/pkg/testhelpers"
)

func setupSnippetTest(t *testing.T) (SnippetRepository, string) {
	t.Helper()

	engineDB := testhelpers.GetEngineDB(t)
	userID := "user-" + uuid.NewString()

	t.Cleanup(func() {
		_, _ = engineDB.DB.Exec(context.Background(), "DELETE FROM editor_snippets WHERE user_id = $1", userID)
	})

	return NewSnippetRepository(engineDB.DB), userID
}

func TestSnippetRepository_GetMissing(t *testing.T) {
	repo, userID := setupSnippetTest(t)

	snippets, err := repo.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, snippets)
}

func TestSnippetRepository_SaveAndGet(t *testing.T) {
	repo, userID := setupSnippetTest(t)
	ctx := context.Background()

	first := json.RawMessage(`[{"name":"daily","sql":"SELECT 1"}]`)
	require.NoError(t, repo.Save(ctx, userID, first))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(got))

	// second save overwrites the same row
	second := json.RawMessage(`[]`)
	require.NoError(t, repo.Save(ctx, userID, second))

	got, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))
}

func TestSnippetRepository_UsersAreIsolated(t *testing.T) {
	repo, userID := setupSnippetTest(t)
	_, otherUser := setupSnippetTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, userID, json.RawMessage(`[{"name":"mine"}]`)))

	got, err := repo.Get(ctx, otherUser)
	require.NoError(t, err)
	assert.Nil(t, got)
}
