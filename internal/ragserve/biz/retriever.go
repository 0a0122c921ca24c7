package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

// contextSeparator 拼接多个检索块时使用的分隔符。
const contextSeparator = "\n\n---\n\n"

// sourcePreviewLen 来源预览的最大字符数。
const sourcePreviewLen = 150

// RetrieverConfig 检索器配置，支持运行时热更新。
type RetrieverConfig struct {
	// TopK 返回的结果数量。
	TopK int `json:"top-k" mapstructure:"top-k"`
	// ScoreThreshold 相似度下限，低于该值的结果被丢弃。
	ScoreThreshold float64 `json:"score-threshold" mapstructure:"score-threshold"`
}

// RetrievalResult 表示一次检索的结果。
type RetrievalResult struct {
	// Results 检索到的文档块，按分数降序。
	Results []*store.SearchResult
	// ContextText 拼接后的上下文文本。
	ContextText string
	// Sources 带预览的来源列表。
	Sources []model.Source
}

// Retriever 负责带相关性过滤的向量检索。
// 查询可与对话上下文融合，使后续追问继承此前话题的语义。
type Retriever struct {
	store    store.VectorStore
	embedder *Embedder

	mu        sync.RWMutex
	topK      int
	threshold float64
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedder *Embedder, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:     vectorStore,
		embedder:  embedder,
		topK:      config.TopK,
		threshold: config.ScoreThreshold,
	}
}

// Retrieve 执行检索，不携带对话上下文。
func (r *Retriever) Retrieve(ctx context.Context, question string) (*RetrievalResult, error) {
	return r.RetrieveWithContext(ctx, question, "")
}

// RetrieveWithContext 执行检索，将对话上下文融合进查询。
// conversationContext 为空时退化为普通检索。
func (r *Retriever) RetrieveWithContext(ctx context.Context, question, conversationContext string) (*RetrievalResult, error) {
	query := question
	if conversationContext != "" {
		query = fmt.Sprintf("Context: %s\n\nQuestion: %s", conversationContext, question)
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	topK, threshold := r.params()
	results, err := r.store.Search(ctx, embedding, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	logger.Debugw("retrieval completed",
		"question_length", utf8.RuneCountInString(question),
		"with_context", conversationContext != "",
		"results", len(results))

	return buildRetrievalResult(results), nil
}

// params 返回当前生效的检索参数。
func (r *Retriever) params() (int, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topK, r.threshold
}

// OnConfigChange 应用热更新后的检索参数。
// 与 config.ReloadableSubscriber 配合使用，newConfig 为
// 从配置文件 rag 段反序列化出的 *RetrieverConfig。
func (r *Retriever) OnConfigChange(newConfig interface{}) error {
	cfg, ok := newConfig.(*RetrieverConfig)
	if !ok {
		return fmt.Errorf("unexpected config type: %T", newConfig)
	}
	if cfg.TopK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", cfg.TopK)
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		return fmt.Errorf("score-threshold must be in [0, 1], got %f", cfg.ScoreThreshold)
	}

	r.mu.Lock()
	r.topK = cfg.TopK
	r.threshold = cfg.ScoreThreshold
	r.mu.Unlock()

	logger.Infow("retriever config reloaded", "top_k", cfg.TopK, "score_threshold", cfg.ScoreThreshold)
	return nil
}

// buildRetrievalResult 从检索结果构建上下文文本与来源列表。
func buildRetrievalResult(results []*store.SearchResult) *RetrievalResult {
	contents := make([]string, 0, len(results))
	sources := make([]model.Source, 0, len(results))
	for _, res := range results {
		contents = append(contents, res.Content)

		preview := textutil.TruncateString(res.Content, sourcePreviewLen)
		if preview != res.Content {
			preview += "..."
		}
		sources = append(sources, model.Source{
			ChunkID:    res.ID,
			DocumentID: res.DocumentID,
			Filename:   res.Filename,
			Preview:    preview,
			Score:      res.Score,
		})
	}

	return &RetrievalResult{
		Results:     results,
		ContextText: strings.Join(contents, contextSeparator),
		Sources:     sources,
	}
}
