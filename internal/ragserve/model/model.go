// Package model provides data models for the ragserve service.
package model

import (
	"time"
)

// Source 表示回答引用的文档块来源。
type Source struct {
	// ChunkID 文档块 ID。
	ChunkID string `json:"chunk_id"`
	// DocumentID 所属文档 ID。
	DocumentID string `json:"document_id"`
	// Filename 所属文档名称。
	Filename string `json:"filename"`
	// Preview 内容预览，最多 150 个字符。
	Preview string `json:"preview"`
	// Score 相似度分数。
	Score float64 `json:"score"`
}

// ChatResult 表示一次问答的完整结果。
type ChatResult struct {
	// Answer 生成的回答。
	Answer string `json:"answer"`
	// SessionID 会话 ID。
	SessionID string `json:"session_id"`
	// Sources 引用的来源列表。
	Sources []Source `json:"sources"`
	// Cached 是否命中了查询缓存。
	Cached bool `json:"cached,omitempty"`
}

// StreamEvent 表示流式问答的一帧事件。
type StreamEvent struct {
	// Type 事件类型：token、sources、done、error。
	Type string `json:"type"`
	// Content token 事件的增量文本。
	Content string `json:"content,omitempty"`
	// Sources sources 事件携带的来源列表。
	Sources []Source `json:"sources,omitempty"`
	// SessionID done 事件携带的会话 ID。
	SessionID string `json:"session_id,omitempty"`
	// Error error 事件的错误信息。
	Error string `json:"error,omitempty"`
}

// 流式事件类型。
const (
	EventToken   = "token"
	EventSources = "sources"
	EventDone    = "done"
	EventError   = "error"
)

// ChatMessage 表示会话中的一条消息。
type ChatMessage struct {
	// Role 消息角色：user 或 assistant。
	Role string `json:"role"`
	// Content 消息内容。
	Content string `json:"content"`
	// Timestamp 消息时间。
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo 表示会话概要信息。
type SessionInfo struct {
	// ID 会话 ID，格式为 session_{uuid}。
	ID string `json:"id"`
	// MessageCount 会话中的消息条数。
	MessageCount int `json:"message_count"`
	// CreatedAt 创建时间。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt 最近活跃时间。
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestResult 表示一次文档入库的结果。
type IngestResult struct {
	// DocumentID 文档 ID。
	DocumentID string `json:"document_id"`
	// Filename 文件名。
	Filename string `json:"filename"`
	// ChunkCount 切分后的块数量。
	ChunkCount int `json:"chunk_count"`
	// SizeBytes 文件字节数。
	SizeBytes int64 `json:"size_bytes"`
}

// BatchIngestResult 表示批量入库的结果。
type BatchIngestResult struct {
	// Succeeded 成功入库的文档。
	Succeeded []IngestResult `json:"succeeded"`
	// Failed 入库失败的文件及原因。
	Failed []IngestFailure `json:"failed"`
}

// IngestFailure 表示单个文件入库失败的信息。
type IngestFailure struct {
	// Filename 文件名。
	Filename string `json:"filename"`
	// Error 失败原因。
	Error string `json:"error"`
}

// DocumentInfo 表示已索引文档的概要信息。
type DocumentInfo struct {
	// ID 文档 ID。
	ID string `json:"id"`
	// Filename 文件名。
	Filename string `json:"filename"`
	// FileType 文件类型（扩展名，不含点）。
	FileType string `json:"file_type"`
	// SizeBytes 文件字节数。
	SizeBytes int64 `json:"size_bytes"`
	// ChunkCount 块数量。
	ChunkCount int `json:"chunk_count"`
	// Status 文档状态。
	Status string `json:"status"`
	// UploadedAt 上传时间。
	UploadedAt time.Time `json:"uploaded_at"`
}

// ModelInfo 表示当前使用的模型信息。
type ModelInfo struct {
	// EmbeddingProvider 嵌入供应商名称。
	EmbeddingProvider string `json:"embedding_provider"`
	// ChatProvider 对话供应商名称。
	ChatProvider string `json:"chat_provider"`
	// EmbeddingDimension 嵌入向量维度，尚未确定时为 0。
	EmbeddingDimension int `json:"embedding_dimension"`
}

// StatsResult 表示服务统计信息。
type StatsResult struct {
	// DocumentCount 文档数量。
	DocumentCount int `json:"document_count"`
	// ChunkCount 块数量。
	ChunkCount int64 `json:"chunk_count"`
	// SessionCount 活跃会话数量。
	SessionCount int `json:"session_count"`
	// EmbeddingDimension 向量维度。
	EmbeddingDimension int `json:"embedding_dimension"`
}
