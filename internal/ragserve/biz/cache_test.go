package biz

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/ragserve/model"
)

// 辅助函数：创建测试用 Redis 客户端
func setupTestRedis(t *testing.T) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}

	client.FlushDB(ctx)
	return client
}

func TestAnswerCacheDisabled(t *testing.T) {
	cache := NewAnswerCache(nil, nil)

	result, err := cache.Get(context.Background(), "question")
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.NoError(t, cache.Set(context.Background(), "question", &model.ChatResult{Answer: "a"}))
}

func TestAnswerCacheSetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewAnswerCache(client, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:ragserve:",
	})

	ctx := context.Background()
	original := &model.ChatResult{
		Answer: "Go was created at Google.",
		Sources: []model.Source{
			{ChunkID: "c0", DocumentID: "doc_a1b2c3d4_e5f60708", Filename: "go.txt", Score: 0.95},
		},
	}
	require.NoError(t, cache.Set(ctx, "where was go created", original))

	cached, err := cache.Get(ctx, "where was go created")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, original.Answer, cached.Answer)
	require.Len(t, cached.Sources, 1)
	assert.Equal(t, "go.txt", cached.Sources[0].Filename)

	// 未缓存的问题返回未命中
	miss, err := cache.Get(ctx, "different question")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestAnswerCacheCorruptEntry(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewAnswerCache(client, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:ragserve:",
	})

	ctx := context.Background()
	key := cache.cacheKey("broken")
	require.NoError(t, client.Set(ctx, key, "not json", time.Minute).Err())

	_, err := cache.Get(ctx, "broken")
	assert.Error(t, err)

	// 损坏的条目被清除
	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestAnswerCacheClear(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewAnswerCache(client, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:ragserve:",
	})

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "q1", &model.ChatResult{Answer: "a1"}))
	require.NoError(t, cache.Set(ctx, "q2", &model.ChatResult{Answer: "a2"}))

	deleted, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	result, err := cache.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Nil(t, result)
}
