package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedProvider struct {
	calls int
	short bool
}

func (p *countingEmbedProvider) Name() string { return "counting" }

func (p *countingEmbedProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	p.calls++
	n := len(texts)
	if p.short && n > 0 {
		n--
	}
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

func TestEmbedderEmptyInput(t *testing.T) {
	provider := &countingEmbedProvider{}
	embedder := NewEmbedder(provider, "m", 0)

	vectors, err := embedder.EmbedBatch(context.Background(), nil, TaskRetrievalQuery)
	require.NoError(t, err)
	require.Nil(t, vectors)
	require.Zero(t, provider.calls)
}

func TestEmbedderCountMismatch(t *testing.T) {
	embedder := NewEmbedder(&countingEmbedProvider{short: true}, "m", 0)

	_, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"}, TaskRetrievalDocument)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnavailable))
}

type deadlineEmbedProvider struct {
	hasDeadline bool
}

func (p *deadlineEmbedProvider) Name() string { return "deadline" }

func (p *deadlineEmbedProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	_, p.hasDeadline = ctx.Deadline()
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

type deadlineCompletionProvider struct {
	hasDeadline bool
}

func (p *deadlineCompletionProvider) Name() string { return "deadline" }

func (p *deadlineCompletionProvider) Complete(ctx context.Context, model string, req CompletionRequest) (string, error) {
	_, p.hasDeadline = ctx.Deadline()
	return "ok", nil
}

func TestEmbedderAppliesTimeout(t *testing.T) {
	provider := &deadlineEmbedProvider{}
	embedder := NewEmbedder(provider, "m", 30*time.Second)

	_, err := embedder.EmbedBatch(context.Background(), []string{"a"}, TaskRetrievalDocument)
	require.NoError(t, err)
	require.True(t, provider.hasDeadline)

	noTimeout := NewEmbedder(provider, "m", 0)
	_, err = noTimeout.EmbedBatch(context.Background(), []string{"a"}, TaskRetrievalDocument)
	require.NoError(t, err)
	require.False(t, provider.hasDeadline)
}

func TestCompleterAppliesTimeout(t *testing.T) {
	provider := &deadlineCompletionProvider{}
	completer := NewCompleter(provider, "m", time.Minute)

	_, err := completer.Complete(context.Background(), CompletionRequest{Prompt: "q"})
	require.NoError(t, err)
	require.True(t, provider.hasDeadline)
}

func TestNewProviderUnknownName(t *testing.T) {
	_, err := NewCompletionProvider("nope", nil)
	require.Error(t, err)
	_, err = NewEmbedProvider("nope", nil)
	require.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
