package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
	// Model 与 Dimensions 参与缓存键计算，切换模型或维度后旧向量不会被命中。
	Model      string
	Dimensions int
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "tutor:embed:",
	}
}

// CachedEmbeddingProvider 为 Embedding 结果提供 Redis 缓存。
// Redis 故障只记录日志，不影响向量生成。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    goredis.UniversalClient
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis goredis.UniversalClient,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// cacheKey 由供应商、模型、维度、任务类型与文本的 SHA256 组成。
func (c *CachedEmbeddingProvider) cacheKey(text string, task TaskType) string {
	h := sha256.New()
	for _, part := range []string{
		c.provider.Name(),
		c.config.Model,
		strconv.Itoa(c.config.Dimensions),
		string(task),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Embed 批量生成 Embedding，只为未命中的文本调用底层 provider。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if c.redis == nil || len(texts) == 0 {
		return c.provider.Embed(ctx, texts, task)
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text, task)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int

	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warnw("redis mget error, falling back to provider", "error", err.Error())
		values = make([]any, len(keys))
	}

	for i, v := range values {
		s, ok := v.(string)
		if ok {
			var emb []float32
			if err := json.Unmarshal([]byte(s), &emb); err == nil && len(emb) > 0 {
				embeddings[i] = emb
				continue
			}
			// 反序列化失败，删除损坏的缓存
			logger.Warnw("corrupted cached embedding, deleting", "key", keys[i])
			_ = c.redis.Del(ctx, keys[i]).Err()
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		logger.Debugw("embedding cache hit", "total", len(texts), "task", string(task))
		return embeddings, nil
	}

	missTexts := make([]string, len(missIdx))
	for i, idx := range missIdx {
		missTexts[i] = texts[idx]
	}

	logger.Debugw("embedding cache miss", "total", len(texts), "uncached", len(missIdx), "task", string(task))
	computed, err := c.provider.Embed(ctx, missTexts, task)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, errors.New("embedding provider returned unexpected vector count")
	}

	pipe := c.redis.Pipeline()
	for i, idx := range missIdx {
		embeddings[idx] = computed[i]

		data, err := json.Marshal(computed[i])
		if err != nil {
			logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
			continue
		}
		pipe.Set(ctx, keys[idx], data, c.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnw("failed to cache embeddings", "error", err.Error(), "count", len(missIdx))
	}

	return embeddings, nil
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache 清除所有 Embedding 缓存。
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) error {
	if c.redis == nil {
		return nil
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
		return err
	}

	logger.Infow("cleared embedding cache", "deleted_count", deleted)
	return nil
}
