package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomehq/tome/internal/ai"
	"github.com/tomehq/tome/internal/model"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/vector"
)

// maxTopK is the hard cap on vector-index requests regardless of what
// the caller asks for.
const maxTopK = 10

type ISearcher interface {
	Search(ctx context.Context, vec []float32, limit int, filter map[string]interface{}) ([]*vector.Match, error)
}

// Retriever turns a query into scored context items, either by vector
// search over the book index or by wrapping caller-selected text.
type Retriever struct {
	embedder ai.IEmbedder
	searcher ISearcher
	defaultK int
}

func NewRetriever(embedder ai.IEmbedder, searcher ISearcher, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &Retriever{embedder: embedder, searcher: searcher, defaultK: defaultK}
}

type RetrieveRequest struct {
	Query        string
	Mode         string
	BookID       string
	SelectedText string
	TopK         int
}

func (r *Retriever) Retrieve(ctx context.Context, req RetrieveRequest) ([]*model.ContextItem, error) {
	switch req.Mode {
	case model.ModeSelectedTextOnly:
		return r.retrieveSelected(req.SelectedText)
	case model.ModeFullBook, "":
		return r.retrieveFullBook(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown retrieval mode: %s", appErr.ErrInvalid, req.Mode)
	}
}

// retrieveSelected wraps the user's selection as the sole context item.
// The query is not embedded and the vector index is never touched.
func (r *Retriever) retrieveSelected(selectedText string) ([]*model.ContextItem, error) {
	text := strings.TrimSpace(selectedText)
	if text == "" {
		return nil, fmt.Errorf("%w: selected text is required in selected-text mode", appErr.ErrInvalid)
	}
	return []*model.ContextItem{
		{
			Text:   text,
			Score:  1.0,
			Origin: model.OriginUserSelected,
		},
	}, nil
}

func (r *Retriever) retrieveFullBook(ctx context.Context, req RetrieveRequest) ([]*model.ContextItem, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	k := req.TopK
	if k <= 0 {
		k = r.defaultK
	}
	if k > maxTopK {
		k = maxTopK
	}
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query}, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", appErr.ErrUpstream, err)
	}
	var filter map[string]interface{}
	if req.BookID != "" {
		filter = map[string]interface{}{"book_id": req.BookID}
	}
	matches, err := r.searcher.Search(ctx, vectors[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", appErr.ErrUpstream, err)
	}
	items := make([]*model.ContextItem, 0, len(matches))
	for _, match := range matches {
		items = append(items, matchToContextItem(match))
	}
	return items, nil
}

func matchToContextItem(match *vector.Match) *model.ContextItem {
	item := &model.ContextItem{
		Score:  match.Score,
		Origin: model.OriginRetrieved,
	}
	if v, ok := match.Payload["chunk_text"].(string); ok {
		item.Text = v
	}
	item.Position.Chapter = payloadInt(match.Payload, "chapter")
	item.Position.Page = payloadInt(match.Payload, "page")
	item.Position.Paragraph = payloadInt(match.Payload, "paragraph")
	return item
}

func payloadInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
