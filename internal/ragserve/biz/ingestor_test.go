package biz

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/ragserve/store"
)

func newTestIngestor(t *testing.T) (*Ingestor, store.VectorStore) {
	t.Helper()

	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ingestor := NewIngestor(s, NewEmbedder(newFakeEmbeddingProvider()), &IngestorConfig{
		ChunkSize:         100,
		ChunkOverlap:      20,
		AllowedExtensions: []string{".txt", ".pdf", ".docx"},
	})
	return ingestor, s
}

func TestIngestTxtDocument(t *testing.T) {
	ingestor, s := newTestIngestor(t)
	ctx := context.Background()

	content := strings.Repeat("Go is expressive, concise, clean, and efficient. ", 10)
	result, err := ingestor.Ingest(ctx, "intro.txt", []byte(content))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^doc_[0-9a-f]{8}_[0-9a-f]{8}$`), result.DocumentID)
	assert.Equal(t, "intro.txt", result.Filename)
	assert.Greater(t, result.ChunkCount, 1)
	assert.Equal(t, int64(len(content)), result.SizeBytes)

	// 文档元数据已写入存储
	doc, ok, err := s.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.ChunkCount, doc.ChunkCount)
	assert.Len(t, doc.ContentHash, 64)

	// 块 ID 格式：{docID}_chunk_{四位序号}
	results, err := s.Search(ctx, []float32{1.0, 0.0, 0.0}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Regexp(t, regexp.MustCompile(`_chunk_\d{4}$`), results[0].ID)
}

func TestIngestUniqueDocumentIDs(t *testing.T) {
	ingestor, _ := newTestIngestor(t)
	ctx := context.Background()

	content := []byte("The same document uploaded twice gets distinct ids.")
	first, err := ingestor.Ingest(ctx, "dup.txt", content)
	require.NoError(t, err)
	second, err := ingestor.Ingest(ctx, "dup.txt", content)
	require.NoError(t, err)

	// 内容哈希前缀相同，随机后缀不同
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, first.DocumentID[:12], second.DocumentID[:12])
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	ingestor, _ := newTestIngestor(t)

	_, err := ingestor.Ingest(context.Background(), "image.png", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ingestor := NewIngestor(s, NewEmbedder(newFakeEmbeddingProvider()), &IngestorConfig{
		ChunkSize:         100,
		ChunkOverlap:      20,
		AllowedExtensions: []string{".txt"},
		MaxFileSize:       64,
	})

	_, err = ingestor.Ingest(context.Background(), "big.txt", bytes.Repeat([]byte("a"), 65))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	ingestor, _ := newTestIngestor(t)

	_, err := ingestor.Ingest(context.Background(), "empty.txt", nil)
	assert.Error(t, err)

	_, err = ingestor.Ingest(context.Background(), "", []byte("content"))
	assert.Error(t, err)

	// 只有空白字符的文件没有可入库的内容
	_, err = ingestor.Ingest(context.Background(), "blank.txt", []byte("   \n  "))
	assert.Error(t, err)
}

func TestIngestBatchPartialFailure(t *testing.T) {
	ingestor, s := newTestIngestor(t)

	result := ingestor.IngestBatch(context.Background(), []IngestFile{
		{Filename: "good.txt", Data: []byte("valid content for the first file")},
		{Filename: "bad.png", Data: []byte("unsupported")},
		{Filename: "also-good.txt", Data: []byte("valid content for the third file")},
	})

	assert.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bad.png", result.Failed[0].Filename)
	assert.NotEmpty(t, result.Failed[0].Error)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
}

func TestIngestBatchEmpty(t *testing.T) {
	ingestor, _ := newTestIngestor(t)

	result := ingestor.IngestBatch(context.Background(), nil)
	assert.Empty(t, result.Succeeded)
	assert.Empty(t, result.Failed)
}
