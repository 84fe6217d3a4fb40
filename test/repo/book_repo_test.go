package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tomehq/tome/internal/model"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/repo"
	"github.com/tomehq/tome/test/testutil"
)

func TestBookRepoCRUD(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	books := repo.NewBookRepo(db)
	bookID := uuid.NewString()
	now := time.Now().Unix()
	require.NoError(t, books.Create(context.Background(), &model.Book{
		ID:       bookID,
		Title:    "Colors",
		Author:   "Anon",
		Content:  "The sky is blue.",
		Metadata: map[string]string{"toc": `["Chapter 1"]`},
		Ctime:    now,
	}))

	book, err := books.Get(context.Background(), bookID)
	require.NoError(t, err)
	require.Equal(t, "Colors", book.Title)
	require.Equal(t, `["Chapter 1"]`, book.Metadata["toc"])

	exists, err := books.Exists(context.Background(), bookID)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, books.UpdateSourceKey(context.Background(), bookID, "books/"+bookID+".txt"))
	book, err = books.Get(context.Background(), bookID)
	require.NoError(t, err)
	require.Equal(t, "books/"+bookID+".txt", book.SourceKey)

	require.NoError(t, books.Delete(context.Background(), bookID))
	_, err = books.Get(context.Background(), bookID)
	require.True(t, appErr.IsNotFound(err))
}

func TestBookRepoGetMissing(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	books := repo.NewBookRepo(db)
	_, err := books.Get(context.Background(), uuid.NewString())
	require.True(t, appErr.IsNotFound(err))
}
