package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tomehq/tome/internal/pkg/errcode"
	"github.com/tomehq/tome/internal/pkg/response"
	"github.com/tomehq/tome/internal/rag"
	"github.com/tomehq/tome/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	BookID       string `json:"book_id"`
	Query        string `json:"query"`
	Mode         string `json:"mode"`
	SelectedText string `json:"selected_text"`
	TopK         int    `json:"top_k"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	res, err := h.chat.Chat(c.Request.Context(), service.ChatRequest{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		BookID:       req.BookID,
		Query:        req.Query,
		Mode:         req.Mode,
		SelectedText: req.SelectedText,
		TopK:         req.TopK,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

type retrieveRequest struct {
	BookID       string `json:"book_id"`
	Query        string `json:"query"`
	Mode         string `json:"mode"`
	SelectedText string `json:"selected_text"`
	TopK         int    `json:"top_k"`
}

// Retrieve exposes the retrieval stage on its own, mostly for debugging
// relevance. Upstream failures surface as errors here.
func (h *ChatHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	items, err := h.chat.Retrieve(c.Request.Context(), rag.RetrieveRequest{
		Query:        req.Query,
		Mode:         req.Mode,
		BookID:       req.BookID,
		SelectedText: req.SelectedText,
		TopK:         req.TopK,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "count": len(items)})
}

type createSessionRequest struct {
	UserID   string `json:"user_id"`
	Metadata string `json:"metadata"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	session, err := h.chat.CreateSession(c.Request.Context(), req.UserID, req.Metadata)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *ChatHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	records, err := h.chat.GetHistory(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"records": records})
}
