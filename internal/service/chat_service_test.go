package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomehq/tome/internal/model"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/rag"
)

type fakeSessionStore struct {
	sessions map[string]*model.Session
	touched  []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*model.Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *model.Session) error {
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) Touch(ctx context.Context, sessionID string, mtime int64) error {
	f.touched = append(f.touched, sessionID)
	return nil
}

type fakeHistoryStore struct {
	records []*model.ChatRecord
}

func (f *fakeHistoryStore) Create(ctx context.Context, record *model.ChatRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistoryStore) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*model.ChatRecord, error) {
	records := make([]*model.ChatRecord, 0)
	for _, record := range f.records {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	return records, nil
}

type fakeRetriever struct {
	items   []*model.ContextItem
	err     error
	lastReq rag.RetrieveRequest
}

func (f *fakeRetriever) Retrieve(ctx context.Context, req rag.RetrieveRequest) ([]*model.ContextItem, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeGenerator struct {
	lastItems []*model.ContextItem
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, query string, items []*model.ContextItem, mode string) *rag.GenerateResult {
	f.calls++
	f.lastItems = items
	answer := "generated answer"
	if len(items) == 0 {
		answer = "no context answer"
	}
	return &rag.GenerateResult{
		Answer:      answer,
		Citations:   []*model.Citation{},
		ContextUsed: len(items),
		Model:       "fake-model",
	}
}

func newChatFixture() (*ChatService, *fakeBookStore, *fakeSessionStore, *fakeHistoryStore, *fakeRetriever, *fakeGenerator) {
	books := newFakeBookStore()
	books.books["book-1"] = &model.Book{ID: "book-1", Title: "Colors"}
	sessions := newFakeSessionStore()
	history := &fakeHistoryStore{}
	retriever := &fakeRetriever{items: []*model.ContextItem{{Text: "The sky is blue.", Score: 0.9, Origin: model.OriginRetrieved}}}
	generator := &fakeGenerator{}
	svc := NewChatService(books, sessions, history, retriever, generator)
	return svc, books, sessions, history, retriever, generator
}

func TestChatValidation(t *testing.T) {
	svc, _, _, _, _, _ := newChatFixture()

	_, err := svc.Chat(context.Background(), ChatRequest{BookID: "book-1", Query: "  "})
	require.True(t, appErr.IsInvalid(err))

	_, err = svc.Chat(context.Background(), ChatRequest{BookID: "book-1", Query: "q", Mode: "bogus"})
	require.True(t, appErr.IsInvalid(err))

	_, err = svc.Chat(context.Background(), ChatRequest{Query: "q", Mode: model.ModeFullBook})
	require.True(t, appErr.IsInvalid(err))
}

func TestChatBookNotFound(t *testing.T) {
	svc, _, _, _, _, _ := newChatFixture()

	_, err := svc.Chat(context.Background(), ChatRequest{BookID: "missing", Query: "q"})
	require.True(t, appErr.IsNotFound(err))
}

func TestChatCreatesSessionLazily(t *testing.T) {
	svc, _, sessions, _, _, _ := newChatFixture()

	res, err := svc.Chat(context.Background(), ChatRequest{BookID: "book-1", Query: "what color is the sky"})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.Contains(t, sessions.sessions, res.SessionID)

	// An unknown caller-provided session ID is adopted, not rejected.
	res2, err := svc.Chat(context.Background(), ChatRequest{
		SessionID: "client-session", BookID: "book-1", Query: "q",
	})
	require.NoError(t, err)
	require.Equal(t, "client-session", res2.SessionID)
	require.Contains(t, sessions.sessions, "client-session")
}

func TestChatRecordsHistoryAndTouchesSession(t *testing.T) {
	svc, _, sessions, history, _, _ := newChatFixture()

	res, err := svc.Chat(context.Background(), ChatRequest{BookID: "book-1", Query: "what color is the sky"})
	require.NoError(t, err)
	require.Len(t, history.records, 1)
	require.Equal(t, res.SessionID, history.records[0].SessionID)
	require.Equal(t, res.Answer, history.records[0].Answer)
	require.Equal(t, model.ModeFullBook, history.records[0].Mode)
	require.Equal(t, []string{res.SessionID}, sessions.touched)
	require.NotEmpty(t, res.ResponseID)
}

func TestChatRetrievalFailureDegrades(t *testing.T) {
	svc, _, _, _, retriever, generator := newChatFixture()
	retriever.err = fmt.Errorf("%w: qdrant down", appErr.ErrUpstream)

	res, err := svc.Chat(context.Background(), ChatRequest{BookID: "book-1", Query: "q"})
	require.NoError(t, err)
	require.Equal(t, 1, generator.calls)
	require.Empty(t, generator.lastItems)
	require.Equal(t, "no context answer", res.Answer)
}

func TestChatInvalidRetrievalPropagates(t *testing.T) {
	svc, _, _, _, retriever, generator := newChatFixture()
	retriever.err = fmt.Errorf("%w: selected text is required", appErr.ErrInvalid)

	_, err := svc.Chat(context.Background(), ChatRequest{
		BookID: "book-1", Query: "q", Mode: model.ModeSelectedTextOnly,
	})
	require.True(t, appErr.IsInvalid(err))
	require.Zero(t, generator.calls)
}

func TestChatSelectedTextSkipsBookCheck(t *testing.T) {
	svc, _, _, _, retriever, _ := newChatFixture()

	_, err := svc.Chat(context.Background(), ChatRequest{
		Query: "q", Mode: model.ModeSelectedTextOnly, SelectedText: "A passage.",
	})
	require.NoError(t, err)
	require.Equal(t, "A passage.", retriever.lastReq.SelectedText)
}

func TestRetrievePropagatesErrors(t *testing.T) {
	svc, _, _, _, retriever, _ := newChatFixture()
	retriever.err = fmt.Errorf("%w: qdrant down", appErr.ErrUpstream)

	_, err := svc.Retrieve(context.Background(), rag.RetrieveRequest{Query: "q", BookID: "book-1"})
	require.True(t, appErr.IsUpstream(err))

	_, err = svc.Retrieve(context.Background(), rag.RetrieveRequest{Query: "q", BookID: "missing"})
	require.True(t, appErr.IsNotFound(err))
}

func TestGetHistoryUnknownSession(t *testing.T) {
	svc, _, _, _, _, _ := newChatFixture()

	_, err := svc.GetHistory(context.Background(), "nope", 10, 0)
	require.True(t, appErr.IsNotFound(err))
}
