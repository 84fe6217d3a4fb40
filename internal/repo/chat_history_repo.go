package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/tomehq/tome/internal/model"
	"github.com/tomehq/tome/internal/pkg/dbutil"
)

type ChatHistoryRepo struct {
	db *sql.DB
}

func NewChatHistoryRepo(db *sql.DB) *ChatHistoryRepo {
	return &ChatHistoryRepo{db: db}
}

func (r *ChatHistoryRepo) Create(ctx context.Context, record *model.ChatRecord) error {
	data := map[string]interface{}{
		"id":          record.ID,
		"session_id":  record.SessionID,
		"user_query":  record.Query,
		"response_id": record.ResponseID,
		"answer":      record.Answer,
		"mode":        record.Mode,
		"ctime":       record.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("chat_history", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChatHistoryRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*model.ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	sqlStr, args := dbutil.Finalize(`
		SELECT id, session_id, user_query, response_id, answer, mode, ctime
		FROM chat_history
		WHERE session_id = ?
		ORDER BY ctime DESC
		LIMIT ? OFFSET ?
	`, []interface{}{sessionID, limit, offset})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]*model.ChatRecord, 0)
	for rows.Next() {
		var record model.ChatRecord
		if err := rows.Scan(&record.ID, &record.SessionID, &record.Query,
			&record.ResponseID, &record.Answer, &record.Mode, &record.Ctime); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
