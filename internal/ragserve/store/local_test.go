package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/ragserve/store"
)

func newTestDoc(id, filename string, chunkCount int) *store.DocumentRecord {
	return &store.DocumentRecord{
		ID:          id,
		Filename:    filename,
		FileType:    "txt",
		SizeBytes:   1024,
		ChunkCount:  chunkCount,
		ContentHash: "deadbeef",
		Status:      store.DocumentStatusIndexed,
		UploadedAt:  time.Now(),
	}
}

func TestLocalStoreAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0001_xxxxxxxx", "guide.txt", 3)
	chunks := []*store.Chunk{
		{ID: "doc_aaaa0001_xxxxxxxx_chunk_0000", DocumentID: doc.ID, Index: 0, Content: "exact match", Embedding: []float32{1.0, 0.0}},
		{ID: "doc_aaaa0001_xxxxxxxx_chunk_0001", DocumentID: doc.ID, Index: 1, Content: "orthogonal", Embedding: []float32{0.0, 1.0}},
		{ID: "doc_aaaa0001_xxxxxxxx_chunk_0002", DocumentID: doc.ID, Index: 2, Content: "far away", Embedding: []float32{3.0, 0.0}},
	}
	require.NoError(t, s.AddDocument(ctx, doc, chunks))

	results, err := s.Search(ctx, []float32{1.0, 0.0}, 5, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 结果按分数降序排列
	assert.Equal(t, "exact match", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
	assert.Equal(t, "guide.txt", results[0].Filename)
	assert.True(t, results[0].Score >= results[1].Score)
	assert.True(t, results[1].Score >= results[2].Score)
}

func TestLocalStoreSearchThreshold(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0002_xxxxxxxx", "notes.txt", 2)
	chunks := []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Index: 0, Content: "near", Embedding: []float32{1.0, 0.0}},
		// 距离平方 4，分数 0.2，低于阈值 0.3
		{ID: doc.ID + "_chunk_0001", DocumentID: doc.ID, Index: 1, Content: "far", Embedding: []float32{3.0, 0.0}},
	}
	require.NoError(t, s.AddDocument(ctx, doc, chunks))

	results, err := s.Search(ctx, []float32{1.0, 0.0}, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Content)
}

func TestLocalStoreSearchTopK(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0003_xxxxxxxx", "many.txt", 5)
	var chunks []*store.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, &store.Chunk{
			ID:         doc.ID + "_chunk_000" + string(rune('0'+i)),
			DocumentID: doc.ID,
			Index:      i,
			Content:    "chunk",
			Embedding:  []float32{float32(i), 0.0},
		})
	}
	require.NoError(t, s.AddDocument(ctx, doc, chunks))

	results, err := s.Search(ctx, []float32{0.0, 0.0}, 2, 0.0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLocalStoreSearchEmptyIndex(t *testing.T) {
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), []float32{1.0, 0.0}, 5, 0.0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0004_xxxxxxxx", "a.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc, []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Content: "a", Embedding: []float32{1.0, 0.0}},
	}))

	// 维度不一致的块被拒绝
	doc2 := newTestDoc("doc_aaaa0005_xxxxxxxx", "b.txt", 1)
	err = s.AddDocument(ctx, doc2, []*store.Chunk{
		{ID: doc2.ID + "_chunk_0000", DocumentID: doc2.ID, Content: "b", Embedding: []float32{1.0, 0.0, 0.0}},
	})
	assert.Error(t, err)

	// 维度不一致的查询同样被拒绝
	_, err = s.Search(ctx, []float32{1.0, 0.0, 0.0}, 5, 0.0)
	assert.Error(t, err)
}

func TestLocalStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.NewLocalStore(dir)
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0006_xxxxxxxx", "persisted.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc, []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Content: "survives restart", Embedding: []float32{0.5, 0.5}},
	}))
	require.NoError(t, s.Close(ctx))

	// 重新打开后索引与元数据均恢复
	reopened, err := store.NewLocalStore(dir)
	require.NoError(t, err)

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, int64(1), stats.ChunkCount)
	assert.Equal(t, 2, stats.Dimension)

	results, err := reopened.Search(ctx, []float32{0.5, 0.5}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "survives restart", results[0].Content)
	assert.Equal(t, "persisted.txt", results[0].Filename)

	got, ok, err := reopened.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "txt", got.FileType)
	assert.Equal(t, store.DocumentStatusIndexed, got.Status)
}

func TestLocalStoreMetadataFileShape(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.NewLocalStore(dir)
	require.NoError(t, err)

	doc := newTestDoc("doc_bbbb0001_xxxxxxxx", "shape.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc, []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Content: "text", Embedding: []float32{1.0, 0.0}},
	}))

	// metadata.json 直接是 文档 ID -> 元数据 的映射，无外层包装
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	var docs map[string]*store.DocumentRecord
	require.NoError(t, json.Unmarshal(data, &docs))
	require.Contains(t, docs, doc.ID)
	assert.Equal(t, "shape.txt", docs[doc.ID].Filename)
	assert.Equal(t, "txt", docs[doc.ID].FileType)
	assert.Equal(t, store.DocumentStatusIndexed, docs[doc.ID].Status)
}

func TestLocalStoreCorruptIndexResets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.bin"), []byte("not gob data"), 0o644))

	// 损坏的索引不阻止启动，重置为空
	s, err := store.NewLocalStore(dir)
	require.NoError(t, err)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, int64(0), stats.ChunkCount)
}

func TestLocalStoreDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_aaaa0007_xxxxxxxx", "doomed.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc, []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Content: "gone soon", Embedding: []float32{1.0, 0.0}},
	}))

	existed, err := s.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	// 幂等：再次删除返回不存在
	existed, err = s.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, int64(0), stats.ChunkCount)

	// 索引清空后维度重置，允许以新维度写入
	doc2 := newTestDoc("doc_aaaa0008_xxxxxxxx", "new-dim.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc2, []*store.Chunk{
		{ID: doc2.ID + "_chunk_0000", DocumentID: doc2.ID, Content: "new", Embedding: []float32{1.0, 0.0, 0.0}},
	}))
}

func TestLocalStoreListDocuments(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	first := newTestDoc("doc_aaaa0009_xxxxxxxx", "first.txt", 1)
	first.UploadedAt = time.Now().Add(-time.Hour)
	second := newTestDoc("doc_aaaa0010_xxxxxxxx", "second.txt", 1)

	require.NoError(t, s.AddDocument(ctx, second, []*store.Chunk{
		{ID: second.ID + "_chunk_0000", DocumentID: second.ID, Content: "b", Embedding: []float32{0.0, 1.0}},
	}))
	require.NoError(t, s.AddDocument(ctx, first, []*store.Chunk{
		{ID: first.ID + "_chunk_0000", DocumentID: first.ID, Content: "a", Embedding: []float32{1.0, 0.0}},
	}))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first.txt", docs[0].Filename)
	assert.Equal(t, "second.txt", docs[1].Filename)

	got, ok, err := s.GetDocument(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first.txt", got.Filename)

	_, ok, err = s.GetDocument(ctx, "doc_missing_xxxxxxxx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreClear(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc := newTestDoc("doc_cccc0001_xxxxxxxx", "notes.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc, []*store.Chunk{
		{ID: doc.ID + "_chunk_0000", DocumentID: doc.ID, Index: 0, Content: "text", Embedding: []float32{1.0, 0.0}},
	}))

	removed, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.EqualValues(t, 0, stats.ChunkCount)
	assert.Equal(t, 0, stats.Dimension)

	// 清空后允许以新维度重建索引
	doc2 := newTestDoc("doc_cccc0002_xxxxxxxx", "more.txt", 1)
	require.NoError(t, s.AddDocument(ctx, doc2, []*store.Chunk{
		{ID: doc2.ID + "_chunk_0000", DocumentID: doc2.ID, Index: 0, Content: "text", Embedding: []float32{0.0, 1.0, 0.0}},
	}))

	removed, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
