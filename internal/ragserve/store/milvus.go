package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/ragserve/pkg/component/milvus"
	"github.com/kart-io/ragserve/pkg/utils/json"
)

const registryFileName = "documents.json"

// MilvusStoreConfig Milvus 存储配置。
type MilvusStoreConfig struct {
	// Collection 集合名称。
	Collection string
	// Dimension 向量维度。
	Dimension int
	// MetadataDir 文档元数据注册表的本地目录。
	// Milvus 按块存储，文档级元数据保存在本地。
	MetadataDir string
}

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	mu sync.RWMutex

	client *milvus.Client
	config *MilvusStoreConfig
	docs   map[string]*DocumentRecord
}

// NewMilvusStore 创建 Milvus 存储实例并确保集合存在。
func NewMilvusStore(ctx context.Context, client *milvus.Client, config *MilvusStoreConfig) (*MilvusStore, error) {
	if config.Collection == "" {
		return nil, fmt.Errorf("milvus collection name is empty")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("milvus embedding dimension must be positive")
	}
	if err := os.MkdirAll(config.MetadataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	schema := &milvus.CollectionSchema{
		Name:        config.Collection,
		Description: "ragserve document chunks",
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	if err := client.CreateCollection(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	s := &MilvusStore{
		client: client,
		config: config,
		docs:   make(map[string]*DocumentRecord),
	}
	if err := s.loadRegistry(); err != nil {
		return nil, err
	}
	return s, nil
}

// loadRegistry 加载本地文档注册表。文件不存在视为首次启动。
func (s *MilvusStore) loadRegistry() error {
	data, err := os.ReadFile(filepath.Join(s.config.MetadataDir, registryFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document registry: %w", err)
	}

	docs := make(map[string]*DocumentRecord)
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to decode document registry: %w", err)
	}
	s.docs = docs
	return nil
}

// persistRegistry 持久化本地文档注册表。调用方需持有写锁。
func (s *MilvusStore) persistRegistry() error {
	data, err := json.Marshal(s.docs)
	if err != nil {
		return fmt.Errorf("failed to encode document registry: %w", err)
	}
	return writeAtomic(s.config.MetadataDir, registryFileName, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
}

// AddDocument 原子地写入文档元数据及其全部块。
func (s *MilvusStore) AddDocument(ctx context.Context, doc *DocumentRecord, chunks []*Chunk) error {
	if doc == nil {
		return fmt.Errorf("document record is nil")
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document has no chunks")
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"chunk_id":    make([]any, len(chunks)),
		"document_id": make([]any, len(chunks)),
		"chunk_index": make([]any, len(chunks)),
		"content":     make([]any, len(chunks)),
	}
	for i, c := range chunks {
		if len(c.Embedding) != s.config.Dimension {
			return fmt.Errorf("chunk %s dimension mismatch: got %d, collection has %d",
				c.ID, len(c.Embedding), s.config.Dimension)
		}
		embeddings[i] = c.Embedding
		metadata["chunk_id"][i] = c.ID
		metadata["document_id"][i] = c.DocumentID
		metadata["chunk_index"][i] = int64(c.Index)
		metadata["content"][i] = c.Content
	}

	if _, err := s.client.Insert(ctx, s.config.Collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("failed to insert into milvus: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return s.persistRegistry()
}

// Search 向量相似度搜索。
// Milvus 以 L2 距离建索引，分数换算为 1 / (1 + distance)。
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	outputFields := []string{"chunk_id", "document_id", "content"}
	results, err := s.client.Search(ctx, s.config.Collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchResults := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		score := 1.0 / (1.0 + float64(r.Score))
		if score < threshold {
			continue
		}
		docID, _ := r.Metadata["document_id"].(string)
		chunkID, _ := r.Metadata["chunk_id"].(string)
		content, _ := r.Metadata["content"].(string)

		filename := ""
		if doc, ok := s.docs[docID]; ok {
			filename = doc.Filename
		}
		searchResults = append(searchResults, &SearchResult{
			ID:         chunkID,
			DocumentID: docID,
			Filename:   filename,
			Content:    content,
			Score:      score,
		})
	}
	return searchResults, nil
}

// DeleteDocument 删除文档及其全部块，返回文档是否存在。
func (s *MilvusStore) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return false, nil
	}

	expr := fmt.Sprintf("document_id == %q", documentID)
	if _, err := s.client.DeleteByExpr(ctx, s.config.Collection, expr); err != nil {
		return true, fmt.Errorf("failed to delete chunks from milvus: %w", err)
	}

	delete(s.docs, documentID)
	return true, s.persistRegistry()
}

// GetDocument 查询单个文档元数据。
func (s *MilvusStore) GetDocument(_ context.Context, documentID string) (*DocumentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	return doc, ok, nil
}

// ListDocuments 列出全部文档元数据，按上传时间升序。
func (s *MilvusStore) ListDocuments(_ context.Context) ([]*DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*DocumentRecord, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sortDocumentsByUploadTime(docs)
	return docs, nil
}

// Clear 清空全部文档与块，返回被删除的文档数量。
func (s *MilvusStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.docs)
	if removed == 0 {
		return 0, nil
	}

	if _, err := s.client.DeleteByExpr(ctx, s.config.Collection, `chunk_id != ""`); err != nil {
		return 0, fmt.Errorf("failed to clear milvus collection: %w", err)
	}

	s.docs = make(map[string]*DocumentRecord)
	return removed, s.persistRegistry()
}

// Stats 获取存储统计信息。
func (s *MilvusStore) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.client.GetCollectionStats(ctx, s.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection stats: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Stats{
		DocumentCount: len(s.docs),
		ChunkCount:    count,
		Dimension:     s.config.Dimension,
	}, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
