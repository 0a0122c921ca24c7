package store

import (
	"context"
	"sort"
	"time"
)

// Chunk 表示文档块。
type Chunk struct {
	// ID 文档块 ID，格式为 {documentID}_chunk_{序号}。
	ID string `json:"id"`
	// DocumentID 所属文档 ID。
	DocumentID string `json:"document_id"`
	// Index 块在文档中的序号。
	Index int `json:"index"`
	// Content 文档块内容。
	Content string `json:"content"`
	// Embedding 嵌入向量。
	Embedding []float32 `json:"-"`
}

// SearchResult 表示检索结果。
type SearchResult struct {
	// ID 文档块 ID。
	ID string `json:"id"`
	// DocumentID 所属文档 ID。
	DocumentID string `json:"document_id"`
	// Filename 所属文档名称。
	Filename string `json:"filename"`
	// Content 文档块内容。
	Content string `json:"content"`
	// Score 相似度分数，范围 (0, 1]。
	Score float64 `json:"score"`
}

// DocumentStatusIndexed 文档已完成切分与索引。
const DocumentStatusIndexed = "indexed"

// DocumentRecord 表示已索引文档的元数据。
type DocumentRecord struct {
	// ID 文档 ID，格式为 doc_{内容哈希前8位}_{随机8位}。
	ID string `json:"id"`
	// Filename 原始文件名。
	Filename string `json:"filename"`
	// FileType 文件类型（扩展名，不含点）。
	FileType string `json:"file_type"`
	// SizeBytes 原始文件字节数。
	SizeBytes int64 `json:"size_bytes"`
	// ChunkCount 切分后的块数量。
	ChunkCount int `json:"chunk_count"`
	// ContentHash 文件内容的 SHA-256 哈希。
	ContentHash string `json:"content_hash"`
	// Status 文档状态，入库完成后为 indexed。
	Status string `json:"status"`
	// UploadedAt 上传时间。
	UploadedAt time.Time `json:"uploaded_at"`
}

// Stats 表示存储统计信息。
type Stats struct {
	// DocumentCount 文档数量。
	DocumentCount int `json:"document_count"`
	// ChunkCount 文档块数量。
	ChunkCount int64 `json:"chunk_count"`
	// Dimension 向量维度，尚未写入数据时为 0。
	Dimension int `json:"dimension"`
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// AddDocument 原子地写入文档元数据及其全部块。
	AddDocument(ctx context.Context, doc *DocumentRecord, chunks []*Chunk) error

	// Search 向量相似度搜索，过滤低于 threshold 的结果，
	// 按分数降序返回最多 topK 条。
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]*SearchResult, error)

	// DeleteDocument 删除文档及其全部块，返回文档是否存在。
	DeleteDocument(ctx context.Context, documentID string) (bool, error)

	// GetDocument 查询单个文档元数据。
	GetDocument(ctx context.Context, documentID string) (*DocumentRecord, bool, error)

	// ListDocuments 列出全部文档元数据，按上传时间升序。
	ListDocuments(ctx context.Context) ([]*DocumentRecord, error)

	// Clear 清空全部文档与块，返回被删除的文档数量。
	Clear(ctx context.Context) (int, error)

	// Stats 获取存储统计信息。
	Stats(ctx context.Context) (*Stats, error)

	// Close 关闭存储并释放资源。
	Close(ctx context.Context) error
}

// sortDocumentsByUploadTime 按上传时间升序排序文档列表。
func sortDocumentsByUploadTime(docs []*DocumentRecord) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
}
