package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/pkg/utils/json"
)

const (
	indexFileName    = "index.bin"
	metadataFileName = "metadata.json"
)

// LocalStore 实现基于本地磁盘的向量存储。
// 向量索引以 gob 格式保存在 index.bin，文档元数据以 JSON
// 格式保存在 metadata.json，所有读写操作由单个读写锁保护。
type LocalStore struct {
	mu sync.RWMutex

	dir       string
	dimension int
	chunks    []*Chunk
	docs      map[string]*DocumentRecord
}

// persistedIndex index.bin 的持久化结构。
type persistedIndex struct {
	Dimension int
	Chunks    []*persistedChunk
}

// persistedChunk 包含向量的块持久化结构。
type persistedChunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
}

// NewLocalStore 创建本地存储实例并加载已有索引。
// 索引文件损坏时重置为空索引，不会阻止服务启动。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &LocalStore{
		dir:  dir,
		docs: make(map[string]*DocumentRecord),
	}

	if err := s.load(); err != nil {
		logger.Warnw("vector index corrupted, resetting to empty store",
			"dir", dir, "error", err.Error())
		s.dimension = 0
		s.chunks = nil
		s.docs = make(map[string]*DocumentRecord)
	}

	return s, nil
}

// load 从磁盘加载索引与元数据。两个文件都不存在视为首次启动。
func (s *LocalStore) load() error {
	indexPath := filepath.Join(s.dir, indexFileName)
	metaPath := filepath.Join(s.dir, metadataFileName)

	f, err := os.Open(indexPath)
	switch {
	case os.IsNotExist(err):
		// 首次启动，无索引可加载
	case err != nil:
		return fmt.Errorf("failed to open index file: %w", err)
	default:
		defer f.Close()

		var idx persistedIndex
		if err := gob.NewDecoder(f).Decode(&idx); err != nil {
			return fmt.Errorf("failed to decode index file: %w", err)
		}
		s.dimension = idx.Dimension
		s.chunks = make([]*Chunk, 0, len(idx.Chunks))
		for _, pc := range idx.Chunks {
			s.chunks = append(s.chunks, &Chunk{
				ID:         pc.ID,
				DocumentID: pc.DocumentID,
				Index:      pc.Index,
				Content:    pc.Content,
				Embedding:  pc.Embedding,
			})
		}
	}

	data, err := os.ReadFile(metaPath)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	// metadata.json 直接保存 文档 ID -> 元数据 的映射
	docs := make(map[string]*DocumentRecord)
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to decode metadata file: %w", err)
	}
	s.docs = docs

	logger.Infow("vector index loaded",
		"dir", s.dir, "chunks", len(s.chunks), "documents", len(s.docs), "dimension", s.dimension)
	return nil
}

// persist 将索引与元数据写入磁盘。
// 先写临时文件再原子重命名，避免崩溃时留下半写状态。
func (s *LocalStore) persist() error {
	idx := persistedIndex{
		Dimension: s.dimension,
		Chunks:    make([]*persistedChunk, 0, len(s.chunks)),
	}
	for _, c := range s.chunks {
		idx.Chunks = append(idx.Chunks, &persistedChunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Index:      c.Index,
			Content:    c.Content,
			Embedding:  c.Embedding,
		})
	}

	if err := writeAtomic(s.dir, indexFileName, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(&idx)
	}); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	data, err := json.Marshal(s.docs)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writeAtomic(s.dir, metadataFileName, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	}); err != nil {
		return fmt.Errorf("failed to persist metadata: %w", err)
	}

	return nil
}

// writeAtomic 通过临时文件加重命名实现原子写入。
func writeAtomic(dir, name string, write func(*os.File) error) error {
	target := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}

// AddDocument 原子地写入文档元数据及其全部块。
func (s *LocalStore) AddDocument(_ context.Context, doc *DocumentRecord, chunks []*Chunk) error {
	if doc == nil {
		return fmt.Errorf("document record is nil")
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document has no chunks")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has empty embedding", c.ID)
		}
		if s.dimension == 0 {
			s.dimension = len(c.Embedding)
		}
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s dimension mismatch: got %d, index has %d",
				c.ID, len(c.Embedding), s.dimension)
		}
	}

	s.chunks = append(s.chunks, chunks...)
	s.docs[doc.ID] = doc

	if err := s.persist(); err != nil {
		return err
	}

	logger.Infow("document indexed",
		"document_id", doc.ID, "filename", doc.Filename, "chunks", len(chunks))
	return nil
}

// Search 向量相似度搜索。
// 分数由欧氏距离平方换算：score = 1 / (1 + distance)。
func (s *LocalStore) Search(_ context.Context, embedding []float32, topK int, threshold float64) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, index has %d",
			len(embedding), s.dimension)
	}

	results := make([]*SearchResult, 0, topK)
	for _, c := range s.chunks {
		score := 1.0 / (1.0 + textutil.SquaredL2Distance(embedding, c.Embedding))
		if score < threshold {
			continue
		}
		filename := ""
		if doc, ok := s.docs[c.DocumentID]; ok {
			filename = doc.Filename
		}
		results = append(results, &SearchResult{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Filename:   filename,
			Content:    c.Content,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteDocument 删除文档及其全部块，返回文档是否存在。
func (s *LocalStore) DeleteDocument(_ context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return false, nil
	}

	delete(s.docs, documentID)
	remaining := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			remaining = append(remaining, c)
		}
	}
	s.chunks = remaining

	// 索引清空后重置维度，允许之后以不同维度重建
	if len(s.chunks) == 0 {
		s.dimension = 0
	}

	if err := s.persist(); err != nil {
		return true, err
	}

	logger.Infow("document deleted", "document_id", documentID)
	return true, nil
}

// GetDocument 查询单个文档元数据。
func (s *LocalStore) GetDocument(_ context.Context, documentID string) (*DocumentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	return doc, ok, nil
}

// ListDocuments 列出全部文档元数据，按上传时间升序。
func (s *LocalStore) ListDocuments(_ context.Context) ([]*DocumentRecord, error) {
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
func (s *LocalStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.docs)
	s.chunks = nil
	s.docs = make(map[string]*DocumentRecord)
	s.dimension = 0

	if err := s.persist(); err != nil {
		return removed, err
	}

	logger.Infow("vector store cleared", "documents_removed", removed)
	return removed, nil
}

// Stats 获取存储统计信息。
func (s *LocalStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Stats{
		DocumentCount: len(s.docs),
		ChunkCount:    int64(len(s.chunks)),
		Dimension:     s.dimension,
	}, nil
}

// Close 关闭存储。本地存储每次写入均已持久化，无需额外处理。
func (s *LocalStore) Close(_ context.Context) error {
	return nil
}

// 确保 LocalStore 实现了 VectorStore 接口。
var _ VectorStore = (*LocalStore)(nil)
