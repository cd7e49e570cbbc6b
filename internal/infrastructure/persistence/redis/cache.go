// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"movie-reco-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 推荐结果缓存。目录与索引在进程内只读，同一查询的结果
// 在快照生命周期内稳定，适合直接按查询摘要缓存。
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
	}
}

// RecommendKey 由规范化的查询描述构造缓存键
func RecommendKey(canonical string, topK int) string {
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("reco:v1:%s:%d", hex.EncodeToString(sum[:16]), topK)
}

// GetOrLoadSafe Read-Through，singleflight 合并同 key 并发回源。
// 缓存读写失败只记录，不影响回源结果。
func (c *Cache) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoadSafe",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return val, nil
	}
	if err != redis.Nil {
		span.RecordError(err)
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		// 缓存不可用降级为直接回源
	} else {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	result, err, shared := c.group.Do(key, func() (any, error) {
		// 再次检查缓存（可能已被其他请求填充）
		if val, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
			return val, nil
		}

		data, err := loader()
		if err != nil {
			return nil, err
		}

		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}

		if err := c.client.rdb.Set(ctx, key, bytes, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return bytes, nil
	})

	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Delete",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	return c.client.rdb.Del(ctx, keys...).Err()
}
