package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedderNormalizesVectors(t *testing.T) {
	provider := newFakeEmbeddingProvider()
	provider.fallback = []float32{3.0, 4.0}

	e := NewEmbedder(provider)
	v, err := e.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)

	assert.InDelta(t, 0.6, float64(v[0]), 0.0001)
	assert.InDelta(t, 0.8, float64(v[1]), 0.0001)
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbedderBatch(t *testing.T) {
	provider := newFakeEmbeddingProvider()
	e := NewEmbedder(provider)

	texts := make([]string, 40)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	embeddings, err := e.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, embeddings, 40)
	for _, v := range embeddings {
		assert.Len(t, v, 3)
	}
}

func TestEmbedderEmptyInput(t *testing.T) {
	e := NewEmbedder(newFakeEmbeddingProvider())
	embeddings, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestEmbedderDimensionMismatch(t *testing.T) {
	provider := newFakeEmbeddingProvider()
	provider.vectors["two"] = []float32{1.0, 0.0}

	e := NewEmbedder(provider)
	_, err := e.EmbedQuery(context.Background(), "three dims")
	require.NoError(t, err)

	// 维度从 3 变为 2 时被拒绝
	_, err = e.EmbedQuery(context.Background(), "two")
	assert.Error(t, err)
}

func TestEmbedderProviderError(t *testing.T) {
	provider := newFakeEmbeddingProvider()
	provider.err = fmt.Errorf("provider down")

	e := NewEmbedder(provider)
	_, err := e.EmbedQuery(context.Background(), "hello")
	assert.Error(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}
