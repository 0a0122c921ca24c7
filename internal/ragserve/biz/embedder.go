package biz

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/pkg/infra/pool"
	"github.com/kart-io/ragserve/pkg/llm"
)

// defaultEmbedBatchSize 单次嵌入请求的最大文本数。
const defaultEmbedBatchSize = 16

// Embedder 封装嵌入供应商，负责批量嵌入与向量归一化。
// 向量维度在首次成功嵌入后确定，之后的请求必须保持一致。
type Embedder struct {
	provider  llm.EmbeddingProvider
	batchSize int

	mu        sync.RWMutex
	dimension int
}

// NewEmbedder 创建嵌入器实例。
func NewEmbedder(provider llm.EmbeddingProvider) *Embedder {
	return &Embedder{
		provider:  provider,
		batchSize: defaultEmbedBatchSize,
	}
}

// Dimension 返回已确定的向量维度，尚未嵌入过任何文本时为 0。
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// Provider 返回底层嵌入供应商名称。
func (e *Embedder) Provider() string {
	return e.provider.Name()
}

// EmbedQuery 嵌入单个查询文本并做 L2 归一化。
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedding, err := e.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if err := e.checkDimension(len(embedding)); err != nil {
		return nil, err
	}

	textutil.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedTexts 批量嵌入文本并做 L2 归一化。
// 文本按 batchSize 分批，批次通过嵌入工作池并发执行以限制
// 对供应商的并发压力。
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type batchResult struct {
		start      int
		embeddings [][]float32
		err        error
	}

	batchCount := (len(texts) + e.batchSize - 1) / e.batchSize
	results := make([]batchResult, batchCount)

	var wg sync.WaitGroup
	for i := 0; i < batchCount; i++ {
		start := i * e.batchSize
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		idx := i
		batch := texts[start:end]
		task := func() {
			defer wg.Done()
			embeddings, err := e.provider.Embed(ctx, batch)
			results[idx] = batchResult{start: start, embeddings: embeddings, err: err}
		}

		wg.Add(1)
		// 工作池未初始化或已满时退化为同步执行
		if err := pool.SubmitToType(pool.EmbeddingPool, task); err != nil {
			task()
		}
	}
	wg.Wait()

	out := make([][]float32, 0, len(texts))
	for _, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("failed to embed texts: %w", r.err)
		}
		out = append(out, r.embeddings...)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(out), len(texts))
	}

	for _, embedding := range out {
		if err := e.checkDimension(len(embedding)); err != nil {
			return nil, err
		}
		textutil.NormalizeL2(embedding)
	}
	return out, nil
}

// checkDimension 校验并记录向量维度。
func (e *Embedder) checkDimension(got int) error {
	if got == 0 {
		return fmt.Errorf("embedding provider returned empty vector")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dimension == 0 {
		e.dimension = got
		return nil
	}
	if got != e.dimension {
		return fmt.Errorf("embedding dimension changed: got %d, expected %d", got, e.dimension)
	}
	return nil
}
