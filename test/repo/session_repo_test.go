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

func TestSessionRepoLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	sessions := repo.NewSessionRepo(db)
	history := repo.NewChatHistoryRepo(db)

	sessionID := uuid.NewString()
	now := time.Now().Unix()
	require.NoError(t, sessions.Create(context.Background(), &model.Session{
		ID: sessionID, UserID: "user-1", Ctime: now, Mtime: now,
	}))

	session, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)

	require.NoError(t, sessions.Touch(context.Background(), sessionID, now+10))
	session, err = sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, now+10, session.Mtime)

	require.NoError(t, history.Create(context.Background(), &model.ChatRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Query:      "what color is the sky",
		ResponseID: uuid.NewString(),
		Answer:     "blue",
		Mode:       model.ModeFullBook,
		Ctime:      now,
	}))
	records, err := history.ListBySession(context.Background(), sessionID, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "blue", records[0].Answer)

	// Cleanup cascades over history.
	removed, err := sessions.DeleteIdleBefore(context.Background(), now+100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, int64(1))
	_, err = sessions.Get(context.Background(), sessionID)
	require.True(t, appErr.IsNotFound(err))
}
