package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// CompletionRequest carries one synthesis call: system instructions, the
// user prompt and the sampling temperature.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
}

type ICompletionProvider interface {
	Name() string
	Complete(ctx context.Context, model string, req CompletionRequest) (string, error)
}

type IEmbedProvider interface {
	Name() string
	// EmbedBatch must preserve order: vector i corresponds to texts[i].
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type ICompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ModelName() string
}

type IEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type completer struct {
	provider ICompletionProvider
	model    string
	timeout  time.Duration
}

// NewCompleter binds a provider to a model. A timeout > 0 caps every
// call via the context deadline; 0 leaves the caller's deadline alone.
func NewCompleter(p ICompletionProvider, model string, timeout time.Duration) ICompleter {
	return &completer{provider: p, model: model, timeout: timeout}
}

func (c *completer) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.provider.Complete(ctx, c.model, req)
}

func (c *completer) ModelName() string {
	return c.model
}

type embedder struct {
	provider IEmbedProvider
	model    string
	timeout  time.Duration
}

func NewEmbedder(p IEmbedProvider, model string, timeout time.Duration) IEmbedder {
	return &embedder{provider: p, model: model, timeout: timeout}
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	vectors, err := e.provider.EmbedBatch(ctx, e.model, texts, taskType)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

type CompletionFactory func(args interface{}) (ICompletionProvider, error)

type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	completionRegistry = map[string]CompletionFactory{}
	embedRegistry      = map[string]EmbedFactory{}
)

func Register(name string, factory CompletionFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	completionRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewCompletionProvider(name string, args interface{}) (ICompletionProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.completion.provider is required")
	}
	factory := completionRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported completion provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embedding.provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}
