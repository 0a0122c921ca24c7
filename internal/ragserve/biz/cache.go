package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/pkg/utils/json"
)

// AnswerCacheConfig 回答缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 基于 Redis 的问答结果缓存。
// 仅缓存无会话上下文的独立提问，带历史的追问不可缓存。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建回答缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "ragserve:answer:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey 基于问题生成缓存键（SHA-256 哈希）。
func (c *AnswerCache) cacheKey(question string) string {
	hash := sha256.Sum256([]byte(question))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取回答。未命中时返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, question string) (*model.ChatResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(question)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("answer cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.ChatResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		// 删除损坏的缓存条目
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Debugw("answer cache hit", "key", key)
	return &result, nil
}

// Set 将回答写入缓存。
func (c *AnswerCache) Set(ctx context.Context, question string, result *model.ChatResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	key := c.cacheKey(question)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}
	return nil
}

// Clear 清除全部回答缓存，返回删除的条目数。
func (c *AnswerCache) Clear(ctx context.Context) (int, error) {
	if !c.config.Enabled || c.redis == nil {
		return 0, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	logger.Infow("answer cache cleared", "deleted", deleted)
	return deleted, nil
}
