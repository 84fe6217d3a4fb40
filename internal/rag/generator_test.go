package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/tomehq/tome/internal/ai"
	"github.com/tomehq/tome/internal/model"
)

type fakeCompleter struct {
	calls   int
	lastReq ai.CompletionRequest
	answer  string
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompleter) ModelName() string {
	return "fake-model"
}

func TestGenerateEmptyContext(t *testing.T) {
	completer := &fakeCompleter{answer: "should not be used"}
	g := NewGenerator(completer, 0.1)

	res := g.Generate(context.Background(), "any question", nil, model.ModeFullBook)
	require.Equal(t, noContextAnswer, res.Answer)
	require.Empty(t, res.Citations)
	require.Zero(t, completer.calls)
}

func TestGenerateCitationValidation(t *testing.T) {
	completer := &fakeCompleter{answer: "According to the book, the sky is blue."}
	g := NewGenerator(completer, 0.1)

	items := []*model.ContextItem{
		{
			Text:     "The sky is blue.",
			Score:    0.9,
			Position: model.ChunkPosition{Chapter: 1, Page: 1, Paragraph: 2},
			Origin:   model.OriginRetrieved,
		},
		{
			Text:   "Elephants are the largest land animals.",
			Score:  0.4,
			Origin: model.OriginRetrieved,
		},
	}
	res := g.Generate(context.Background(), "What color is the sky?", items, model.ModeFullBook)
	require.Equal(t, completer.answer, res.Answer)
	require.Len(t, res.Citations, 2)
	require.True(t, res.Citations[0].Validated)
	require.Equal(t, 1, res.Citations[0].Chapter)
	require.False(t, res.Citations[1].Validated)
	require.Equal(t, 2, res.ContextUsed)
	require.Equal(t, "fake-model", res.Model)
}

func TestGeneratePromptAssembly(t *testing.T) {
	completer := &fakeCompleter{answer: "ok"}
	g := NewGenerator(completer, 0.1)

	items := []*model.ContextItem{
		{Text: "First passage.", Origin: model.OriginRetrieved},
		{Text: "Second passage.", Origin: model.OriginRetrieved},
	}
	g.Generate(context.Background(), "a question", items, model.ModeFullBook)
	require.Equal(t, 1, completer.calls)
	require.Contains(t, completer.lastReq.Prompt, "Context 1: First passage.")
	require.Contains(t, completer.lastReq.Prompt, "Context 2: Second passage.")
	require.Contains(t, completer.lastReq.Prompt, "Question: a question")
	require.Contains(t, completer.lastReq.System, "book content")
	require.Equal(t, float32(0.1), completer.lastReq.Temperature)
}

func TestGenerateSelectedTextPreamble(t *testing.T) {
	completer := &fakeCompleter{answer: "ok"}
	g := NewGenerator(completer, 0.1)

	items := []*model.ContextItem{{Text: "Selected passage.", Origin: model.OriginUserSelected}}
	g.Generate(context.Background(), "a question", items, model.ModeSelectedTextOnly)
	require.Contains(t, completer.lastReq.System, "selected text")
}

func TestGenerateCompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model overloaded")}
	g := NewGenerator(completer, 0.1)

	items := []*model.ContextItem{{Text: "Some context.", Origin: model.OriginRetrieved}}
	res := g.Generate(context.Background(), "a question", items, model.ModeFullBook)
	require.Equal(t, apologyAnswer, res.Answer)
	require.Empty(t, res.Citations)
}

func TestGenerateCitationSnippetTruncation(t *testing.T) {
	completer := &fakeCompleter{answer: "an answer"}
	g := NewGenerator(completer, 0.1)

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'z'
	}
	items := []*model.ContextItem{{Text: string(long), Origin: model.OriginRetrieved}}
	res := g.Generate(context.Background(), "q", items, model.ModeFullBook)
	require.Len(t, res.Citations, 1)
	require.Len(t, res.Citations[0].Text, citationSnippetLimit+3)
}

func TestGenerateCitationSnippetRuneBoundary(t *testing.T) {
	completer := &fakeCompleter{answer: "an answer"}
	g := NewGenerator(completer, 0.1)

	// 3-byte runes; the byte limit falls mid-rune, so truncation has to
	// back up to the previous rune boundary.
	long := strings.Repeat("日", 100)
	items := []*model.ContextItem{{Text: long, Origin: model.OriginRetrieved}}
	res := g.Generate(context.Background(), "q", items, model.ModeFullBook)
	require.Len(t, res.Citations, 1)

	got := res.Citations[0].Text
	require.True(t, utf8.ValidString(got))
	require.True(t, strings.HasSuffix(got, "..."))
	require.LessOrEqual(t, len(got), citationSnippetLimit+3)
}
