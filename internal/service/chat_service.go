package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tomehq/tome/internal/model"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/rag"
)

type ISessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Touch(ctx context.Context, sessionID string, mtime int64) error
}

type IChatHistoryStore interface {
	Create(ctx context.Context, record *model.ChatRecord) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*model.ChatRecord, error)
}

type IRetriever interface {
	Retrieve(ctx context.Context, req rag.RetrieveRequest) ([]*model.ContextItem, error)
}

type IGenerator interface {
	Generate(ctx context.Context, query string, items []*model.ContextItem, mode string) *rag.GenerateResult
}

// ChatService is the question-answering orchestrator: retrieval,
// grounded generation and history bookkeeping for one question.
type ChatService struct {
	books     IBookStore
	sessions  ISessionStore
	history   IChatHistoryStore
	retriever IRetriever
	generator IGenerator
}

func NewChatService(books IBookStore, sessions ISessionStore, history IChatHistoryStore,
	retriever IRetriever, generator IGenerator) *ChatService {
	return &ChatService{
		books:     books,
		sessions:  sessions,
		history:   history,
		retriever: retriever,
		generator: generator,
	}
}

type ChatRequest struct {
	SessionID    string
	UserID       string
	BookID       string
	Query        string
	Mode         string
	SelectedText string
	TopK         int
}

type ChatResponse struct {
	SessionID   string            `json:"session_id"`
	ResponseID  string            `json:"response_id"`
	Answer      string            `json:"answer"`
	Citations   []*model.Citation `json:"citations"`
	ContextUsed int               `json:"context_used"`
	Model       string            `json:"model"`
}

// Chat answers one question. Retrieval failures degrade to the fixed
// no-context answer; only invalid input and missing books are surfaced
// as errors, the generation step never hard-fails the operation.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	mode := req.Mode
	if mode == "" {
		mode = model.ModeFullBook
	}
	if mode != model.ModeFullBook && mode != model.ModeSelectedTextOnly {
		return nil, fmt.Errorf("%w: unknown mode: %s", appErr.ErrInvalid, mode)
	}
	if mode == model.ModeFullBook {
		if req.BookID == "" {
			return nil, fmt.Errorf("%w: book_id is required in full-book mode", appErr.ErrInvalid)
		}
		exists, err := s.books.Exists(ctx, req.BookID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: book %s", appErr.ErrNotFound, req.BookID)
		}
	}

	session, err := s.ensureSession(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("session_id", session.ID),
		zap.String("book_id", req.BookID),
		zap.String("mode", mode))

	items, err := s.retriever.Retrieve(ctx, rag.RetrieveRequest{
		Query:        query,
		Mode:         mode,
		BookID:       req.BookID,
		SelectedText: req.SelectedText,
		TopK:         req.TopK,
	})
	if err != nil {
		if appErr.IsInvalid(err) {
			return nil, err
		}
		// Degrade to an ungrounded answer rather than failing the chat.
		logger.Error("retrieval failed, answering without context", zap.Error(err))
		items = nil
	}

	result := s.generator.Generate(ctx, query, items, mode)
	responseID := uuid.NewString()
	now := time.Now().Unix()
	if err := s.history.Create(ctx, &model.ChatRecord{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Query:      query,
		ResponseID: responseID,
		Answer:     result.Answer,
		Mode:       mode,
		Ctime:      now,
	}); err != nil {
		logger.Warn("failed to record chat history", zap.Error(err))
	}
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		logger.Warn("failed to touch session", zap.Error(err))
	}

	return &ChatResponse{
		SessionID:   session.ID,
		ResponseID:  responseID,
		Answer:      result.Answer,
		Citations:   result.Citations,
		ContextUsed: result.ContextUsed,
		Model:       result.Model,
	}, nil
}

// Retrieve exposes retrieval without generation. Unlike Chat, upstream
// failures are propagated so callers can tell "no matches" from
// "search failed".
func (s *ChatService) Retrieve(ctx context.Context, req rag.RetrieveRequest) ([]*model.ContextItem, error) {
	if req.Mode == "" {
		req.Mode = model.ModeFullBook
	}
	if req.Mode == model.ModeFullBook && req.BookID != "" {
		exists, err := s.books.Exists(ctx, req.BookID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: book %s", appErr.ErrNotFound, req.BookID)
		}
	}
	return s.retriever.Retrieve(ctx, req)
}

func (s *ChatService) CreateSession(ctx context.Context, userID string, metadata string) (*model.Session, error) {
	now := time.Now().Unix()
	session := &model.Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		Metadata: metadata,
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) GetHistory(ctx context.Context, sessionID string, limit, offset int) ([]*model.ChatRecord, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.history.ListBySession(ctx, sessionID, limit, offset)
}

// ensureSession resolves the session lazily: a missing or unknown ID
// gets a fresh session instead of an error, so clients can start
// chatting without a prior session call.
func (s *ChatService) ensureSession(ctx context.Context, sessionID string, userID string) (*model.Session, error) {
	if sessionID != "" {
		session, err := s.sessions.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !appErr.IsNotFound(err) {
			return nil, err
		}
		now := time.Now().Unix()
		session = &model.Session{
			ID:     sessionID,
			UserID: userID,
			Ctime:  now,
			Mtime:  now,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}
	return s.CreateSession(ctx, userID, "")
}
