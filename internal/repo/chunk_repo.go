package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/tomehq/tome/internal/model"
	"github.com/tomehq/tome/internal/pkg/dbutil"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) CreateBatch(ctx context.Context, chunks []*model.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, map[string]interface{}{
			"id":              chunk.ID,
			"book_content_id": chunk.BookID,
			"chunk_text":      chunk.Text,
			"chapter":         chunk.Position.Chapter,
			"page":            chunk.Position.Page,
			"paragraph":       chunk.Position.Paragraph,
			"vector_id":       chunk.VectorID,
			"ctime":           chunk.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("content_chunks", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) ListByBook(ctx context.Context, bookID string) ([]*model.ContentChunk, error) {
	const query = `
		SELECT id, book_content_id, chunk_text, chapter, page, paragraph, vector_id, ctime
		FROM content_chunks
		WHERE book_content_id = $1
		ORDER BY ctime, id
	`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (r *ChunkRepo) ListByVectorIDs(ctx context.Context, vectorIDs []string) ([]*model.ContentChunk, error) {
	if len(vectorIDs) == 0 {
		return []*model.ContentChunk{}, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, book_content_id, chunk_text, chapter, page, paragraph, vector_id, ctime
		FROM content_chunks
		WHERE vector_id IN (?)
	`, vectorIDs)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(query, args)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (r *ChunkRepo) ListVectorIDsByBook(ctx context.Context, bookID string) ([]string, error) {
	sqlStr, args := dbutil.Finalize("SELECT vector_id FROM content_chunks WHERE book_content_id=? AND vector_id != ''", []interface{}{bookID})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChunkRepo) CountByBook(ctx context.Context, bookID string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM content_chunks WHERE book_content_id=?", []interface{}{bookID})
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepo) DeleteByBook(ctx context.Context, bookID string) error {
	sqlStr, args, err := builder.BuildDelete("content_chunks", map[string]interface{}{"book_content_id": bookID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanChunks(rows *sql.Rows) ([]*model.ContentChunk, error) {
	chunks := make([]*model.ContentChunk, 0)
	for rows.Next() {
		var chunk model.ContentChunk
		if err := rows.Scan(&chunk.ID, &chunk.BookID, &chunk.Text,
			&chunk.Position.Chapter, &chunk.Position.Page, &chunk.Position.Paragraph,
			&chunk.VectorID, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
