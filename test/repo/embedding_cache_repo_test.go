package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomehq/tome/internal/model"
	"github.com/tomehq/tome/internal/repo"
	"github.com/tomehq/tome/test/testutil"
)

func TestEmbeddingCacheRepoRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	now := time.Now().Unix()
	item := &model.EmbeddingCache{
		ModelName:   "test-model",
		TaskType:    "RETRIEVAL_QUERY",
		ContentHash: "hash-1",
		Embedding:   []float32{0.1, 0.2, 0.3},
		Ctime:       now,
	}
	require.NoError(t, cache.Save(context.Background(), item))

	values, ok, err := cache.Get(context.Background(), "test-model", "RETRIEVAL_QUERY", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, values, 1e-6)

	_, ok, err = cache.Get(context.Background(), "test-model", "RETRIEVAL_QUERY", "missing")
	require.NoError(t, err)
	require.False(t, ok)

	removed, err := cache.DeleteBefore(context.Background(), now+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, int64(1))
}
