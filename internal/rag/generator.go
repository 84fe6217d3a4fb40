package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tomehq/tome/internal/ai"
	"github.com/tomehq/tome/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	// noContextAnswer is returned without calling the completion model
	// when retrieval produced nothing to ground an answer on.
	noContextAnswer = "I couldn't find relevant information in the book to answer your question. Please try rephrasing or ask about a different topic."
	// apologyAnswer is returned when the completion model fails; chat
	// never hard-fails on generation.
	apologyAnswer = "Sorry, I encountered an error while generating a response. Please try again later."

	fullBookPreamble = "You are a helpful assistant that answers questions based ONLY on the provided book content. " +
		"Do not use any external knowledge or make assumptions beyond what is explicitly stated in the provided content. " +
		"Always cite the specific passages you use to answer the question."
	selectedTextPreamble = "You are a helpful assistant that answers questions based ONLY on the provided selected text. " +
		"Do not use any external knowledge or make assumptions beyond what is explicitly stated in the selected text. " +
		"If the answer is not available in the provided selected text, respond with: " +
		"\"The answer is not available in the provided text.\""

	citationSnippetLimit = 200
)

// Generator synthesizes a grounded answer from retrieved context and
// attaches validated citations.
type Generator struct {
	completer   ai.ICompleter
	temperature float32
}

func NewGenerator(completer ai.ICompleter, temperature float32) *Generator {
	return &Generator{completer: completer, temperature: temperature}
}

type GenerateResult struct {
	Answer      string            `json:"answer"`
	Citations   []*model.Citation `json:"citations"`
	ContextUsed int               `json:"context_used"`
	Model       string            `json:"model"`
}

// Generate builds the prompt from context items, calls the completion
// model and validates each citation against the answer. Completion
// failures degrade to a fixed apology instead of an error: the chat
// operation must never hard-fail on generation.
func (g *Generator) Generate(ctx context.Context, query string, items []*model.ContextItem, mode string) *GenerateResult {
	if len(items) == 0 {
		return &GenerateResult{
			Answer:    noContextAnswer,
			Citations: []*model.Citation{},
			Model:     g.completer.ModelName(),
		}
	}

	contextTexts := make([]string, 0, len(items))
	for i, item := range items {
		contextTexts = append(contextTexts, fmt.Sprintf("Context %d: %s", i+1, item.Text))
	}
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(contextTexts, "\n\n"), query)

	preamble := fullBookPreamble
	if mode == model.ModeSelectedTextOnly {
		preamble = selectedTextPreamble
	}

	answer, err := g.completer.Complete(ctx, ai.CompletionRequest{
		System:      preamble,
		Prompt:      prompt,
		Temperature: g.temperature,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("completion failed, degrading to apology",
			zap.String("model", g.completer.ModelName()), zap.Error(err))
		return &GenerateResult{
			Answer:    apologyAnswer,
			Citations: []*model.Citation{},
			Model:     g.completer.ModelName(),
		}
	}

	return &GenerateResult{
		Answer:      answer,
		Citations:   buildCitations(answer, items),
		ContextUsed: len(items),
		Model:       g.completer.ModelName(),
	}
}

func buildCitations(answer string, items []*model.ContextItem) []*model.Citation {
	citations := make([]*model.Citation, 0, len(items))
	for _, item := range items {
		citations = append(citations, &model.Citation{
			Text:      snippet(item.Text, citationSnippetLimit),
			Chapter:   item.Position.Chapter,
			Page:      item.Position.Page,
			Paragraph: item.Position.Paragraph,
			Score:     item.Score,
			Origin:    item.Origin,
			Validated: citationInAnswer(answer, item.Text),
		})
	}
	return citations
}

// citationInAnswer reports whether any meaningful sentence fragment of
// the source text is echoed in the answer.
func citationInAnswer(answer string, sourceText string) bool {
	answerLower := strings.ToLower(answer)
	for _, sentence := range strings.Split(strings.ToLower(sourceText), ". ") {
		fragment := strings.TrimSpace(sentence)
		if len(fragment) <= 10 {
			continue
		}
		if strings.Contains(answerLower, fragment) {
			return true
		}
	}
	return false
}

// snippet truncates to at most limit bytes without splitting a rune.
func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
