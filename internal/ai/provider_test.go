package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	batches [][]string
}

func (p *recordingProvider) Name() string {
	return "recording"
}

func (p *recordingProvider) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	p.batches = append(p.batches, texts)
	vecs := make([][]float32, 0, len(texts))
	for range texts {
		vecs = append(vecs, []float32{1, 2, 3})
	}
	return vecs, nil
}

func (p *recordingProvider) Complete(ctx context.Context, model string, systemPrompt string, prompt string) (string, error) {
	return "", nil
}

func TestEmbedderClampsLongInput(t *testing.T) {
	provider := &recordingProvider{}
	e := NewEmbedder(provider, "embed-model", 5)

	_, err := e.Embed(context.Background(), "abcdefghij")
	require.NoError(t, err)
	require.Equal(t, []string{"abcde"}, provider.batches[0])

	_, err = e.EmbedBatch(context.Background(), []string{"short", "abcdefghij"})
	require.NoError(t, err)
	require.Equal(t, []string{"short", "abcde"}, provider.batches[1])
}

func TestEmbedderClampKeepsRuneBoundaries(t *testing.T) {
	provider := &recordingProvider{}
	e := NewEmbedder(provider, "embed-model", 3)

	_, err := e.Embed(context.Background(), "日本語テキスト")
	require.NoError(t, err)
	require.Equal(t, []string{"日本語"}, provider.batches[0])
}

func TestEmbedderZeroCapIsUnlimited(t *testing.T) {
	provider := &recordingProvider{}
	e := NewEmbedder(provider, "embed-model", 0)

	long := make([]byte, 1<<16)
	for i := range long {
		long[i] = 'a'
	}
	_, err := e.Embed(context.Background(), string(long))
	require.NoError(t, err)
	require.Len(t, provider.batches[0][0], 1<<16)
}
