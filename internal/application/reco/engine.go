package reco

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "movie-reco-api/pkg/errors"
	"movie-reco-api/pkg/logger"
	"movie-reco-api/pkg/metrics"
)

var engineTracer = otel.Tracer("reco.engine")

const (
	defaultTopK = 10
	maxTopK     = 100
)

// Engine 推荐检索引擎：warm/cold 分发 -> 向量检索 -> 目录富化。
// 目录、索引、编码器在进程启动时加载一次，之后只读，无需加锁。
// 引擎本身无请求间共享的可变状态，可被并发调用。
type Engine struct {
	encoder Encoder
	index   VectorIndex
	catalog CatalogLookup

	defaultTopK int
	maxTopK     int
}

// Option 引擎可选配置
type Option func(*Engine)

// WithTopKBounds 覆盖默认/最大 topK
func WithTopKBounds(def, max int) Option {
	return func(e *Engine) {
		if def > 0 {
			e.defaultTopK = def
		}
		if max > 0 {
			e.maxTopK = max
		}
	}
}

// NewEngine 创建推荐引擎
func NewEngine(encoder Encoder, index VectorIndex, catalog CatalogLookup, opts ...Option) *Engine {
	e := &Engine{
		encoder:     encoder,
		index:       index,
		catalog:     catalog,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ready 整条管线（编码器 + 索引 + 目录）是否就绪。
// 启动部分失败时调用方不应放行任何请求。
func (e *Engine) Ready() bool {
	return e != nil && e.encoder != nil && e.index != nil && e.catalog != nil
}

// Recommend 返回与查询语义最相近的影片，按距离升序（不重排，
// 额外信号的重排属于上游调用方）。要么返回完整结果，要么返回错误，
// 不产生部分结果。
func (e *Engine) Recommend(ctx context.Context, q *Query) (*Result, error) {
	if !e.Ready() {
		return nil, apperrors.ErrPipelineNotLoaded
	}
	if q == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("query is nil")
	}

	topK := q.TopK
	if topK == 0 {
		topK = e.defaultTopK
	}
	if topK < 1 || topK > e.maxTopK {
		return nil, apperrors.ErrTopKOutOfRange.
			WithDetail(fmt.Sprintf("top_k=%d, allowed range [1, %d]", topK, e.maxTopK))
	}

	ctx, span := engineTracer.Start(ctx, "reco.Recommend",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	start := time.Now()

	queryVec, path, err := e.resolveQueryVector(ctx, q)
	if err != nil {
		metrics.RecommendTotal.WithLabelValues(string(path), "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("path", string(path)))

	neighbors, err := e.index.NearestNeighbors(ctx, queryVec, topK)
	if err != nil {
		metrics.RecommendTotal.WithLabelValues(string(path), "error").Inc()
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeVectorIndexError, "nearest neighbor search failed")
	}

	items := e.enrich(ctx, neighbors)

	metrics.RecommendTotal.WithLabelValues(string(path), "ok").Inc()
	metrics.RecommendDuration.WithLabelValues(string(path)).Observe(time.Since(start).Seconds())
	metrics.RecommendResultCount.Observe(float64(len(items)))
	span.SetAttributes(attribute.Int("result_count", len(items)))

	return &Result{
		Path:  path,
		Items: items,
	}, nil
}

// resolveQueryVector warm/cold 分发，产出查询向量。
// 暖启动：外部 id 命中目录反查表，直接取索引中预计算的向量，
// 完全不触发编码（这条路径存在的意义就是避免对已入库影片的重复编码）。
// 冷启动：外部 id 未命中或请求只带描述字段，要求 overview 非空，
// 拼接元数据汤后实时编码。
func (e *Engine) resolveQueryVector(ctx context.Context, q *Query) ([]float32, QueryPath, error) {
	if q.ExternalID != nil {
		if internalID, ok := e.catalog.InternalIDByExternal(*q.ExternalID); ok {
			vec, err := e.index.GetVector(ctx, internalID)
			if err != nil {
				return nil, PathWarm, apperrors.Wrap(err, apperrors.CodeVectorIndexError, "failed to fetch stored vector")
			}
			return vec, PathWarm, nil
		}
		logger.Debug(ctx, "external id not in catalog, falling back to cold start",
			"external_id", *q.ExternalID)
	}

	soup, err := BuildSoup(SoupFromQuery(q))
	if err != nil {
		return nil, PathCold, err
	}

	vec, err := e.encoder.Encode(ctx, soup)
	if err != nil {
		return nil, PathCold, err
	}
	return vec, PathCold, nil
}

// enrich 将 (internalId, distance) 对富化为完整结果。
// 目录中缺失的内部 id 静默跳过：语料与目录应当同步，但单条不一致
// 不应让整个请求失败。索引返回顺序原样保留。
func (e *Engine) enrich(ctx context.Context, neighbors []Neighbor) []NeighborResult {
	items := make([]NeighborResult, 0, len(neighbors))
	for _, n := range neighbors {
		movie, ok := e.catalog.ByInternalID(n.InternalID)
		if !ok {
			logger.Warn(ctx, "neighbor missing from catalog, skipping",
				"internal_id", n.InternalID)
			continue
		}
		items = append(items, NeighborResult{
			InternalID: n.InternalID,
			ExternalID: movie.ExternalID,
			Distance:   n.Distance,
			Similarity: similarityFromAngular(n.Distance),
			Title:      movie.Title,
			Overview:   movie.Overview,
			Year:       movie.Year,
			Genres:     movie.Genres,
			PosterPath: movie.PosterPath,
		})
	}
	return items
}

// similarityFromAngular 将角距离 d ∈ [0, π] 转换为 [0, 1] 的相似度分值。
// 该近似仅对 angular/cosine 族距离成立；索引更换度量时必须重新推导，
// 不能直接复用。
func similarityFromAngular(d float64) float64 {
	return 1 - d/math.Pi
}
