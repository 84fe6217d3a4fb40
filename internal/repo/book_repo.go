package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/tomehq/tome/internal/model"
	"github.com/tomehq/tome/internal/pkg/dbutil"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
)

type BookRepo struct {
	db *sql.DB
}

func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

func (r *BookRepo) Create(ctx context.Context, book *model.Book) error {
	metadataJSON, _ := json.Marshal(book.Metadata)
	data := map[string]interface{}{
		"id":            book.ID,
		"title":         book.Title,
		"author":        book.Author,
		"content":       book.Content,
		"metadata_json": string(metadataJSON),
		"source_key":    book.SourceKey,
		"ctime":         book.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("book_content", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrInvalid
		}
		return err
	}
	return nil
}

func (r *BookRepo) Get(ctx context.Context, bookID string) (*model.Book, error) {
	const query = `
		SELECT id, title, author, content, metadata_json, source_key, ctime
		FROM book_content
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, bookID)
	var book model.Book
	var metadataJSON sql.NullString
	if err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Content, &metadataJSON, &book.SourceKey, &book.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &book.Metadata)
	}
	return &book, nil
}

func (r *BookRepo) Exists(ctx context.Context, bookID string) (bool, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM book_content WHERE id=?", []interface{}{bookID})
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BookRepo) UpdateSourceKey(ctx context.Context, bookID string, sourceKey string) error {
	sqlStr, args, err := builder.BuildUpdate("book_content",
		map[string]interface{}{"id": bookID},
		map[string]interface{}{"source_key": sourceKey})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *BookRepo) Delete(ctx context.Context, bookID string) error {
	sqlStr, args, err := builder.BuildDelete("book_content", map[string]interface{}{"id": bookID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
