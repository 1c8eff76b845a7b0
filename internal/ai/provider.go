package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// IProvider is the opaque model-serving backend: batch embedding plus chat
// completion. Implementations are registered by name and chosen via config.
type IProvider interface {
	Name() string
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
	Complete(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

// IEmbedder binds a provider to a fixed embedding model.
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ICompleter binds a provider to a fixed chat model.
type ICompleter interface {
	Complete(ctx context.Context, systemPrompt string, prompt string) (string, error)
}

type embedder struct {
	provider      IProvider
	model         string
	maxInputChars int
}

// NewEmbedder binds a provider to an embedding model. maxInputChars caps
// each input before it is sent; 0 means no cap.
func NewEmbedder(p IProvider, model string, maxInputChars int) IEmbedder {
	return &embedder{provider: p, model: model, maxInputChars: maxInputChars}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.provider.EmbedBatch(ctx, e.model, []string{e.clamp(text)})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	clamped := make([]string, 0, len(texts))
	for _, text := range texts {
		clamped = append(clamped, e.clamp(text))
	}
	return e.provider.EmbedBatch(ctx, e.model, clamped)
}

// clamp truncates on rune boundaries so multibyte text stays valid UTF-8.
func (e *embedder) clamp(text string) string {
	if e.maxInputChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= e.maxInputChars {
		return text
	}
	return string(runes[:e.maxInputChars])
}

type completer struct {
	provider IProvider
	model    string
}

func NewCompleter(p IProvider, model string) ICompleter {
	return &completer{provider: p, model: model}
}

func (c *completer) Complete(ctx context.Context, systemPrompt string, prompt string) (string, error) {
	return c.provider.Complete(ctx, c.model, systemPrompt, prompt)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
