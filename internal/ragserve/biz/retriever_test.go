package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/ragserve/store"
)

// seedStore 构建预置了文档块的本地存储。
func seedStore(t *testing.T, chunks []*store.Chunk) store.VectorStore {
	t.Helper()

	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := &store.DocumentRecord{
		ID:         "doc_feedc0de_aabbccdd",
		Filename:   "seed.txt",
		SizeBytes:  100,
		ChunkCount: len(chunks),
		UploadedAt: time.Now(),
	}
	for _, c := range chunks {
		c.DocumentID = doc.ID
	}
	require.NoError(t, s.AddDocument(context.Background(), doc, chunks))
	return s
}

func TestRetrieverFiltersAndRanks(t *testing.T) {
	vectorStore := seedStore(t, []*store.Chunk{
		{ID: "c0", Index: 0, Content: "exact topic", Embedding: []float32{1.0, 0.0, 0.0}},
		{ID: "c1", Index: 1, Content: "related topic", Embedding: []float32{0.9, 0.1, 0.0}},
		{ID: "c2", Index: 2, Content: "unrelated", Embedding: []float32{0.0, 1.0, 0.0}},
	})

	provider := newFakeEmbeddingProvider()
	r := NewRetriever(vectorStore, NewEmbedder(provider), &RetrieverConfig{TopK: 5, ScoreThreshold: 0.4})

	result, err := r.Retrieve(context.Background(), "tell me about the topic")
	require.NoError(t, err)

	// 正交块分数 1/3，低于阈值 0.4 被过滤
	require.Len(t, result.Results, 2)
	assert.Equal(t, "exact topic", result.Results[0].Content)
	assert.Equal(t, "related topic", result.Results[1].Content)
	assert.Equal(t, "seed.txt", result.Sources[0].Filename)

	// 上下文用分隔符拼接
	assert.Equal(t, "exact topic\n\n---\n\nrelated topic", result.ContextText)
}

func TestRetrieverContextFusion(t *testing.T) {
	vectorStore := seedStore(t, []*store.Chunk{
		{ID: "c0", Index: 0, Content: "anything", Embedding: []float32{1.0, 0.0, 0.0}},
	})

	provider := newFakeEmbeddingProvider()
	r := NewRetriever(vectorStore, NewEmbedder(provider), &RetrieverConfig{TopK: 5, ScoreThreshold: 0.0})

	convCtx := "Human: What is Go?\nAssistant: A language."
	_, err := r.RetrieveWithContext(context.Background(), "Who made it?", convCtx)
	require.NoError(t, err)

	// 查询与对话上下文融合后送入嵌入器
	fused := provider.LastQuery()
	assert.True(t, strings.HasPrefix(fused, "Context: Human: What is Go?"))
	assert.Contains(t, fused, "\n\nQuestion: Who made it?")
}

func TestRetrieverNoContextPassthrough(t *testing.T) {
	vectorStore := seedStore(t, []*store.Chunk{
		{ID: "c0", Index: 0, Content: "anything", Embedding: []float32{1.0, 0.0, 0.0}},
	})

	provider := newFakeEmbeddingProvider()
	r := NewRetriever(vectorStore, NewEmbedder(provider), &RetrieverConfig{TopK: 5, ScoreThreshold: 0.0})

	_, err := r.Retrieve(context.Background(), "plain question")
	require.NoError(t, err)
	assert.Equal(t, "plain question", provider.LastQuery())
}

func TestRetrieverSourcePreview(t *testing.T) {
	longContent := strings.Repeat("x", 300)
	vectorStore := seedStore(t, []*store.Chunk{
		{ID: "c0", Index: 0, Content: longContent, Embedding: []float32{1.0, 0.0, 0.0}},
	})

	provider := newFakeEmbeddingProvider()
	r := NewRetriever(vectorStore, NewEmbedder(provider), &RetrieverConfig{TopK: 5, ScoreThreshold: 0.0})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)

	preview := result.Sources[0].Preview
	assert.Equal(t, strings.Repeat("x", 150)+"...", preview)
	// 完整内容仍在检索结果中
	assert.Equal(t, longContent, result.Results[0].Content)
}

func TestRetrieverOnConfigChange(t *testing.T) {
	vectorStore := seedStore(t, []*store.Chunk{
		{ID: "c0", Index: 0, Content: "a", Embedding: []float32{1.0, 0.0, 0.0}},
		{ID: "c1", Index: 1, Content: "b", Embedding: []float32{0.0, 1.0, 0.0}},
	})

	provider := newFakeEmbeddingProvider()
	r := NewRetriever(vectorStore, NewEmbedder(provider), &RetrieverConfig{TopK: 5, ScoreThreshold: 0.0})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)

	// 热更新后阈值生效
	require.NoError(t, r.OnConfigChange(&RetrieverConfig{TopK: 5, ScoreThreshold: 0.5}))
	result, err = r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, result.Results, 1)

	// 非法参数被拒绝且不影响现有配置
	assert.Error(t, r.OnConfigChange(&RetrieverConfig{TopK: 0, ScoreThreshold: 0.5}))
	assert.Error(t, r.OnConfigChange(&RetrieverConfig{TopK: 5, ScoreThreshold: 1.5}))
	assert.Error(t, r.OnConfigChange("not a config"))

	topK, threshold := r.params()
	assert.Equal(t, 5, topK)
	assert.InDelta(t, 0.5, threshold, 0.0001)
}
