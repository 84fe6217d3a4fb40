package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tomehq/tome/internal/ai"
	"github.com/tomehq/tome/internal/filestore"
	"github.com/tomehq/tome/internal/model"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/rag"
)

type IBookStore interface {
	Create(ctx context.Context, book *model.Book) error
	Get(ctx context.Context, bookID string) (*model.Book, error)
	Exists(ctx context.Context, bookID string) (bool, error)
	UpdateSourceKey(ctx context.Context, bookID string, sourceKey string) error
	Delete(ctx context.Context, bookID string) error
}

type IChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.ContentChunk) error
	ListByBook(ctx context.Context, bookID string) ([]*model.ContentChunk, error)
	ListVectorIDsByBook(ctx context.Context, bookID string) ([]string, error)
	CountByBook(ctx context.Context, bookID string) (int, error)
	DeleteByBook(ctx context.Context, bookID string) error
}

type IVectorStore interface {
	Upsert(ctx context.Context, vectors [][]float32, payloads []map[string]interface{}) ([]string, error)
	Delete(ctx context.Context, ids []string) error
}

// IngestService turns raw book content into stored chunks plus vector
// index entries. A failure at any stage rolls back everything written
// so far: a book is either fully ingested or absent.
type IngestService struct {
	books    IBookStore
	chunks   IChunkStore
	chunker  *rag.Chunker
	embedder ai.IEmbedder
	vectors  IVectorStore
	archive  filestore.IStore
}

func NewIngestService(books IBookStore, chunks IChunkStore, chunker *rag.Chunker,
	embedder ai.IEmbedder, vectors IVectorStore, archive filestore.IStore) *IngestService {
	return &IngestService{
		books:    books,
		chunks:   chunks,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		archive:  archive,
	}
}

type IngestRequest struct {
	BookID   string
	Title    string
	Author   string
	Content  string
	Metadata map[string]string
}

type IngestResult struct {
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
}

func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", appErr.ErrInvalid)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", appErr.ErrInvalid)
	}
	bookID := req.BookID
	if bookID == "" {
		bookID = uuid.NewString()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID), zap.String("title", req.Title))

	spans := s.chunker.Split(req.Content)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: content produced no chunks", appErr.ErrInvalid)
	}

	metadata := map[string]string{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if toc := tocToMetadata(extractTOC(req.Content)); toc != "" {
		metadata["toc"] = toc
	}
	now := time.Now().Unix()
	if err := s.books.Create(ctx, &model.Book{
		ID:       bookID,
		Title:    req.Title,
		Author:   req.Author,
		Content:  req.Content,
		Metadata: metadata,
		Ctime:    now,
	}); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		texts = append(texts, span.Text)
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		s.rollbackBook(ctx, bookID, nil)
		return nil, fmt.Errorf("%w: embed chunks: %v", appErr.ErrUpstream, err)
	}

	payloads := make([]map[string]interface{}, 0, len(spans))
	for i, span := range spans {
		payloads = append(payloads, map[string]interface{}{
			"book_id":     bookID,
			"chunk_text":  span.Text,
			"chapter":     span.Position.Chapter,
			"page":        span.Position.Page,
			"paragraph":   span.Position.Paragraph,
			"chunk_index": i,
		})
	}
	vectorIDs, err := s.vectors.Upsert(ctx, embeddings, payloads)
	if err != nil {
		s.rollbackBook(ctx, bookID, nil)
		return nil, fmt.Errorf("%w: index chunks: %v", appErr.ErrUpstream, err)
	}
	if len(vectorIDs) != len(spans) {
		s.rollbackBook(ctx, bookID, vectorIDs)
		return nil, fmt.Errorf("%w: indexed %d of %d chunks", appErr.ErrInternal, len(vectorIDs), len(spans))
	}

	records := make([]*model.ContentChunk, 0, len(spans))
	for i, span := range spans {
		records = append(records, &model.ContentChunk{
			ID:       uuid.NewString(),
			BookID:   bookID,
			Text:     span.Text,
			Position: span.Position,
			VectorID: vectorIDs[i],
			Ctime:    now,
		})
	}
	if err := s.chunks.CreateBatch(ctx, records); err != nil {
		s.rollbackBook(ctx, bookID, vectorIDs)
		return nil, err
	}

	s.archiveSource(ctx, bookID, req.Content)

	logger.Info("book ingested", zap.Int("chunks", len(records)))
	return &IngestResult{
		BookID:     bookID,
		Title:      req.Title,
		ChunkCount: len(records),
	}, nil
}

// DeleteBook removes a book, its chunk rows and its vector points.
func (s *IngestService) DeleteBook(ctx context.Context, bookID string) error {
	vectorIDs, err := s.chunks.ListVectorIDsByBook(ctx, bookID)
	if err != nil {
		return err
	}
	if err := s.chunks.DeleteByBook(ctx, bookID); err != nil {
		return err
	}
	if err := s.books.Delete(ctx, bookID); err != nil {
		return err
	}
	if err := s.vectors.Delete(ctx, vectorIDs); err != nil {
		logutil.GetLogger(ctx).Warn("failed to delete vectors for book",
			zap.String("book_id", bookID), zap.Error(err))
	}
	return nil
}

// ListChunks returns a book's stored chunks in insertion order.
func (s *IngestService) ListChunks(ctx context.Context, bookID string) ([]*model.ContentChunk, error) {
	ok, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: book %s", appErr.ErrNotFound, bookID)
	}
	return s.chunks.ListByBook(ctx, bookID)
}

func (s *IngestService) GetBook(ctx context.Context, bookID string) (*model.Book, int, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.chunks.CountByBook(ctx, bookID)
	if err != nil {
		return nil, 0, err
	}
	return book, count, nil
}

// rollbackBook undoes a partial ingest. Best-effort: failures are
// logged, not returned, since the caller is already on an error path.
func (s *IngestService) rollbackBook(ctx context.Context, bookID string, vectorIDs []string) {
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID))
	if len(vectorIDs) > 0 {
		if err := s.vectors.Delete(ctx, vectorIDs); err != nil {
			logger.Warn("rollback: failed to delete vectors", zap.Error(err))
		}
	}
	if err := s.chunks.DeleteByBook(ctx, bookID); err != nil {
		logger.Warn("rollback: failed to delete chunks", zap.Error(err))
	}
	if err := s.books.Delete(ctx, bookID); err != nil && !appErr.IsNotFound(err) {
		logger.Warn("rollback: failed to delete book", zap.Error(err))
	}
	logger.Info("ingest rolled back")
}

// archiveSource stores the raw upload for later download. Archival is
// best-effort and never fails the ingest.
func (s *IngestService) archiveSource(ctx context.Context, bookID string, content string) {
	if s.archive == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID))
	key := "books/" + bookID + ".txt"
	if err := s.archive.Put(ctx, key, strings.NewReader(content)); err != nil {
		logger.Warn("failed to archive book source", zap.Error(err))
		return
	}
	if err := s.books.UpdateSourceKey(ctx, bookID, key); err != nil {
		logger.Warn("failed to record archive key", zap.Error(err))
	}
}

// GetBookSource streams the archived original upload.
func (s *IngestService) GetBookSource(ctx context.Context, bookID string) (io.ReadCloser, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if s.archive == nil || book.SourceKey == "" {
		return nil, fmt.Errorf("%w: no archived source for book", appErr.ErrNotFound)
	}
	return s.archive.Get(ctx, book.SourceKey)
}
