package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/tomehq/tome/internal/pkg/errcode"
	"github.com/tomehq/tome/internal/pkg/response"
	"github.com/tomehq/tome/internal/service"
)

type BookHandler struct {
	ingest *service.IngestService
}

func NewBookHandler(ingest *service.IngestService) *BookHandler {
	return &BookHandler{ingest: ingest}
}

type ingestRequest struct {
	BookID   string            `json:"book_id"`
	Title    string            `json:"title"`
	Author   string            `json:"author"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (h *BookHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	res, err := h.ingest.Ingest(c.Request.Context(), service.IngestRequest{
		BookID:   req.BookID,
		Title:    req.Title,
		Author:   req.Author,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *BookHandler) Get(c *gin.Context) {
	book, chunkCount, err := h.ingest.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":          book.ID,
		"title":       book.Title,
		"author":      book.Author,
		"metadata":    book.Metadata,
		"chunk_count": chunkCount,
		"ctime":       book.Ctime,
	})
}

// Chunks lists a book's stored chunks with their position annotations.
func (h *BookHandler) Chunks(c *gin.Context) {
	chunks, err := h.ingest.ListChunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"chunks": chunks,
		"count":  len(chunks),
	})
}

// GetSource streams the archived original upload as plain text.
func (h *BookHandler) GetSource(c *gin.Context) {
	body, err := h.ingest.GetBookSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer body.Close()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(200)
	_, _ = io.Copy(c.Writer, body)
}

func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.ingest.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
