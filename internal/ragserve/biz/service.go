package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// ServiceConfig 服务聚合配置。
type ServiceConfig struct {
	// Ingestor 入库配置。
	Ingestor *IngestorConfig
	// Retriever 检索配置。
	Retriever *RetrieverConfig
	// Memory 会话记忆配置。
	Memory *MemoryConfig
	// Chat 问答配置。
	Chat *ChatConfig
}

// Service 聚合全部业务组件，作为 HTTP 层的统一入口。
type Service struct {
	store     store.VectorStore
	embedder  *Embedder
	retriever *Retriever
	memory    *ConversationMemory
	ingestor  *Ingestor
	chat      *ChatService
	provider  llm.ChatProvider
}

// NewService 创建并装配业务服务。cache 可为 nil。
func NewService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *AnswerCache,
	config *ServiceConfig,
) *Service {
	embedder := NewEmbedder(embedProvider)
	retriever := NewRetriever(vectorStore, embedder, config.Retriever)
	memory := NewConversationMemory(config.Memory)

	return &Service{
		store:     vectorStore,
		embedder:  embedder,
		retriever: retriever,
		memory:    memory,
		ingestor:  NewIngestor(vectorStore, embedder, config.Ingestor),
		chat:      NewChatService(retriever, memory, chatProvider, cache, config.Chat),
		provider:  chatProvider,
	}
}

// Retriever 返回检索器，用于配置热更新订阅。
func (s *Service) Retriever() *Retriever {
	return s.retriever
}

// Chat 执行同步问答。
func (s *Service) Chat(ctx context.Context, sessionID, question string) (*model.ChatResult, error) {
	return s.chat.Chat(ctx, sessionID, question)
}

// ChatStream 执行流式问答。
func (s *Service) ChatStream(ctx context.Context, sessionID, question string) (<-chan model.StreamEvent, string) {
	return s.chat.ChatStream(ctx, sessionID, question)
}

// Ingest 入库单个文档。
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (*model.IngestResult, error) {
	return s.ingestor.Ingest(ctx, filename, data)
}

// IngestBatch 批量入库文档。
func (s *Service) IngestBatch(ctx context.Context, files []IngestFile) *model.BatchIngestResult {
	return s.ingestor.IngestBatch(ctx, files)
}

// ListDocuments 列出全部已索引文档。
func (s *Service) ListDocuments(ctx context.Context) ([]model.DocumentInfo, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]model.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, documentInfo(doc))
	}
	return infos, nil
}

// GetDocument 查询单个文档。文档不存在时返回 (nil, nil)。
func (s *Service) GetDocument(ctx context.Context, documentID string) (*model.DocumentInfo, error) {
	doc, ok, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	info := documentInfo(doc)
	return &info, nil
}

// DeleteDocument 删除文档，返回文档是否存在。
// 索引内容变化后缓存的回答随之失效。
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	existed, err := s.store.DeleteDocument(ctx, documentID)
	if err != nil || !existed {
		return existed, err
	}
	s.chat.InvalidateCache(ctx)
	return true, nil
}

// ClearDocuments 清空全部文档，返回被删除的文档数量。
// 索引内容变化后缓存的回答随之失效。
func (s *Service) ClearDocuments(ctx context.Context) (int, error) {
	removed, err := s.store.Clear(ctx)
	if err != nil {
		return removed, err
	}
	s.chat.InvalidateCache(ctx)
	return removed, nil
}

// ListSessions 列出全部会话。
func (s *Service) ListSessions() []model.SessionInfo {
	return s.memory.ListSessions()
}

// SessionHistory 返回会话的全部消息及会话是否存在。
func (s *Service) SessionHistory(sessionID string) ([]model.ChatMessage, bool) {
	return s.memory.History(sessionID)
}

// DeleteSession 删除会话，返回会话是否存在。
func (s *Service) DeleteSession(sessionID string) bool {
	return s.memory.DeleteSession(sessionID)
}

// ClearSessions 删除全部会话，返回被删除的会话数量。
func (s *Service) ClearSessions() int {
	return s.memory.ClearAll()
}

// ModelInfo 返回当前使用的模型信息。
func (s *Service) ModelInfo() model.ModelInfo {
	return model.ModelInfo{
		EmbeddingProvider:  s.embedder.Provider(),
		ChatProvider:       s.provider.Name(),
		EmbeddingDimension: s.embedder.Dimension(),
	}
}

// ValidateModel 检查嵌入与对话供应商是否可用。
func (s *Service) ValidateModel(ctx context.Context) error {
	if _, err := s.embedder.EmbedQuery(ctx, "ping"); err != nil {
		return fmt.Errorf("embedding provider unavailable: %w", err)
	}
	if _, err := s.provider.Generate(ctx, "ping", ""); err != nil {
		return fmt.Errorf("chat provider unavailable: %w", err)
	}
	return nil
}

// Stats 返回服务统计信息。
func (s *Service) Stats(ctx context.Context) (*model.StatsResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &model.StatsResult{
		DocumentCount:      stats.DocumentCount,
		ChunkCount:         stats.ChunkCount,
		SessionCount:       s.memory.Count(),
		EmbeddingDimension: stats.Dimension,
	}, nil
}

// documentInfo 转换存储层文档记录为对外模型。
func documentInfo(doc *store.DocumentRecord) model.DocumentInfo {
	return model.DocumentInfo{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		SizeBytes:  doc.SizeBytes,
		ChunkCount: doc.ChunkCount,
		Status:     doc.Status,
		UploadedAt: doc.UploadedAt,
	}
}
