package biz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/pkg/extract"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/infra/pool"
)

// DefaultMaxFileSize 上传文件的默认大小上限。
const DefaultMaxFileSize = 10 << 20 // 10 MB

// IngestorConfig 文档入库配置。
type IngestorConfig struct {
	// ChunkSize 文本块大小（字符数）。
	ChunkSize int
	// ChunkOverlap 相邻块的重叠字符数。
	ChunkOverlap int
	// AllowedExtensions 允许的文件扩展名。
	AllowedExtensions []string
	// MaxFileSize 文件大小上限（字节），为 0 时使用默认值。
	MaxFileSize int64
}

// IngestFile 表示一个待入库的文件。
type IngestFile struct {
	// Filename 文件名。
	Filename string
	// Data 文件内容。
	Data []byte
}

// Ingestor 负责文档校验、切分、嵌入与入库。
type Ingestor struct {
	store    store.VectorStore
	embedder *Embedder
	config   *IngestorConfig
}

// NewIngestor 创建入库器实例。
func NewIngestor(vectorStore store.VectorStore, embedder *Embedder, config *IngestorConfig) *Ingestor {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = extract.SupportedExtensions
	}
	return &Ingestor{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
	}
}

// Ingest 校验并入库单个文档。
func (i *Ingestor) Ingest(ctx context.Context, filename string, data []byte) (*model.IngestResult, error) {
	if err := i.validate(filename, data); err != nil {
		return nil, err
	}

	text, err := extract.Text(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	pieces := textutil.RecursiveSplit(text, i.config.ChunkSize, i.config.ChunkOverlap, nil)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("document %s contains no extractable text", filename)
	}

	embeddings, err := i.embedder.EmbedTexts(ctx, pieces)
	if err != nil {
		return nil, err
	}

	docID, err := newDocumentID(data)
	if err != nil {
		return nil, err
	}

	chunks := make([]*store.Chunk, len(pieces))
	for idx, piece := range pieces {
		chunks[idx] = &store.Chunk{
			ID:         fmt.Sprintf("%s_chunk_%04d", docID, idx),
			DocumentID: docID,
			Index:      idx,
			Content:    piece,
			Embedding:  embeddings[idx],
		}
	}

	doc := &store.DocumentRecord{
		ID:          docID,
		Filename:    filepath.Base(filename),
		FileType:    strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		SizeBytes:   int64(len(data)),
		ChunkCount:  len(chunks),
		ContentHash: textutil.HashString(string(data)),
		Status:      store.DocumentStatusIndexed,
		UploadedAt:  time.Now(),
	}

	if err := i.store.AddDocument(ctx, doc, chunks); err != nil {
		return nil, err
	}

	return &model.IngestResult{
		DocumentID: docID,
		Filename:   doc.Filename,
		ChunkCount: len(chunks),
		SizeBytes:  doc.SizeBytes,
	}, nil
}

// IngestBatch 并发入库多个文档。
// 文件通过入库工作池并发处理，单个文件失败不影响其余文件。
func (i *Ingestor) IngestBatch(ctx context.Context, files []IngestFile) *model.BatchIngestResult {
	result := &model.BatchIngestResult{
		Succeeded: []model.IngestResult{},
		Failed:    []model.IngestFailure{},
	}
	if len(files) == 0 {
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, file := range files {
		f := file
		task := func() {
			defer wg.Done()
			res, err := i.Ingest(ctx, f.Filename, f.Data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnw("batch ingest: file failed", "filename", f.Filename, "error", err.Error())
				result.Failed = append(result.Failed, model.IngestFailure{
					Filename: f.Filename,
					Error:    err.Error(),
				})
				return
			}
			result.Succeeded = append(result.Succeeded, *res)
		}

		wg.Add(1)
		// 工作池不可用时退化为同步执行
		if err := pool.SubmitToType(pool.IngestPool, task); err != nil {
			task()
		}
	}
	wg.Wait()

	return result
}

// validate 校验文件名、扩展名与大小。
func (i *Ingestor) validate(filename string, data []byte) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename is empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("file %s is empty", filename)
	}
	if int64(len(data)) > i.config.MaxFileSize {
		return fmt.Errorf("file %s exceeds size limit of %d bytes", filename, i.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !textutil.ContainsString(i.config.AllowedExtensions, ext) {
		return fmt.Errorf("file type %s is not allowed", ext)
	}
	return nil
}

// newDocumentID 生成文档 ID：doc_{内容哈希前8位}_{随机8位}。
// 随机后缀保证同一文件重复上传得到不同 ID。
func newDocumentID(data []byte) (string, error) {
	hash := textutil.HashString(string(data))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate document id: %w", err)
	}
	return fmt.Sprintf("doc_%s_%s", hash[:8], hex.EncodeToString(buf)), nil
}
