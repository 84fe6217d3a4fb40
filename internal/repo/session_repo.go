package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/tomehq/tome/internal/model"
	"github.com/tomehq/tome/internal/pkg/dbutil"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *model.Session) error {
	data := map[string]interface{}{
		"id":               session.ID,
		"user_id":          session.UserID,
		"session_metadata": session.Metadata,
		"ctime":            session.Ctime,
		"mtime":            session.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	const query = `
		SELECT id, user_id, session_metadata, ctime, mtime
		FROM sessions
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, sessionID)
	var session model.Session
	var userID, metadata sql.NullString
	if err := row.Scan(&session.ID, &userID, &metadata, &session.Ctime, &session.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	session.UserID = userID.String
	session.Metadata = metadata.String
	return &session, nil
}

func (r *SessionRepo) Touch(ctx context.Context, sessionID string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("sessions",
		map[string]interface{}{"id": sessionID},
		map[string]interface{}{"mtime": mtime})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteIdleBefore removes sessions whose last activity predates the
// cutoff, along with their chat history.
func (r *SessionRepo) DeleteIdleBefore(ctx context.Context, cutoff int64) (int64, error) {
	historySQL, historyArgs := dbutil.Finalize(
		"DELETE FROM chat_history WHERE session_id IN (SELECT id FROM sessions WHERE mtime < ?)",
		[]interface{}{cutoff})
	if _, err := r.db.ExecContext(ctx, historySQL, historyArgs...); err != nil {
		return 0, err
	}
	sqlStr, args := dbutil.Finalize("DELETE FROM sessions WHERE mtime < ?", []interface{}{cutoff})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
