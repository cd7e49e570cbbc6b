package milvus

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"movie-reco-api/internal/application/reco"
	apperrors "movie-reco-api/pkg/errors"
	"movie-reco-api/pkg/metrics"
)

const (
	// CollectionMovies 影片向量集合：internal_id (int64 主键) + vector (float_vector)
	CollectionMovies = "movies"

	backendName = "milvus"
)

// MovieIndex 基于 Milvus 的向量索引适配器。
// 集合使用 COSINE 度量；对外统一转换为角距离 arccos(score)，
// 使上层的 1 - d/π 相似度换算对两种索引后端同样成立。
type MovieIndex struct {
	client   *Client
	dim      int
	searchEf int
	size     int
}

var _ reco.VectorIndex = (*MovieIndex)(nil)

// NewMovieIndex 打开影片向量集合并加载到内存。
// 集合不存在视为索引未就绪，启动必须失败。
func NewMovieIndex(ctx context.Context, c *Client, dim int) (*MovieIndex, error) {
	has, err := c.HasCollection(ctx, CollectionMovies)
	if err != nil {
		return nil, fmt.Errorf("failed to check movies collection: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("movies collection %s does not exist", c.CollectionName(CollectionMovies))
	}

	if err := c.LoadCollection(ctx, CollectionMovies); err != nil {
		return nil, fmt.Errorf("failed to load movies collection: %w", err)
	}

	size, err := rowCount(ctx, c)
	if err != nil {
		return nil, err
	}

	searchEf := c.config.SearchEf
	if searchEf <= 0 {
		searchEf = 128
	}

	return &MovieIndex{
		client:   c,
		dim:      dim,
		searchEf: searchEf,
		size:     size,
	}, nil
}

// rowCount 读取集合统计中的行数
func rowCount(ctx context.Context, c *Client) (int, error) {
	stats, err := c.milvus.GetCollectionStatistics(ctx, c.CollectionName(CollectionMovies))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("invalid row_count in collection statistics: %w", err)
	}
	return n, nil
}

// Size 语料规模（加载时的快照值，集合服务期内只读）
func (idx *MovieIndex) Size() int {
	return idx.size
}

// GetVector 按内部 id 取预计算向量
func (idx *MovieIndex) GetVector(ctx context.Context, internalID int) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "milvus.GetVector",
		trace.WithAttributes(attribute.Int("internal_id", internalID)))
	defer span.End()

	collName := idx.client.CollectionName(CollectionMovies)
	rs, err := idx.client.milvus.QueryByPks(ctx, collName, nil,
		entity.NewColumnInt64("internal_id", []int64{int64(internalID)}),
		[]string{"vector"},
	)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeVectorIndexError, "failed to query vector by id")
	}

	col := rs.GetColumn("vector")
	vecCol, ok := col.(*entity.ColumnFloatVector)
	if !ok || vecCol.Len() == 0 {
		return nil, apperrors.ErrVectorNotFound.
			WithDetail(fmt.Sprintf("internal id %d not present in collection", internalID))
	}
	return vecCol.Data()[0], nil
}

// NearestNeighbors 按角距离升序返回至多 k 个近邻。
// Milvus 的 COSINE 分值（余弦相似度）在此转换为角距离。
func (idx *MovieIndex) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]reco.Neighbor, error) {
	ctx, span := tracer.Start(ctx, "milvus.NearestNeighbors",
		trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	if len(vector) != idx.dim {
		metrics.IndexSearchTotal.WithLabelValues(backendName, "error").Inc()
		return nil, apperrors.New(apperrors.CodeVectorIndexError, "query vector dimension mismatch").
			WithDetail(fmt.Sprintf("got %d, want %d", len(vector), idx.dim))
	}

	sp, err := entity.NewIndexHNSWSearchParam(idx.searchEf)
	if err != nil {
		metrics.IndexSearchTotal.WithLabelValues(backendName, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeVectorIndexError, "failed to create search param")
	}

	start := time.Now()

	collName := idx.client.CollectionName(CollectionMovies)
	results, err := idx.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"internal_id"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		metrics.IndexSearchTotal.WithLabelValues(backendName, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeVectorIndexError, "search failed")
	}

	var neighbors []reco.Neighbor
	for _, result := range results {
		ids, ok := result.IDs.(*entity.ColumnInt64)
		if !ok {
			continue
		}
		for i := 0; i < result.ResultCount; i++ {
			neighbors = append(neighbors, reco.Neighbor{
				InternalID: int(ids.Data()[i]),
				Distance:   angularFromCosine(float64(result.Scores[i])),
			})
		}
	}

	metrics.IndexSearchDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	metrics.IndexSearchTotal.WithLabelValues(backendName, "ok").Inc()
	span.SetAttributes(attribute.Int("result_count", len(neighbors)))
	return neighbors, nil
}

// angularFromCosine 余弦相似度转角距离，浮点误差截断到 [-1, 1]
func angularFromCosine(cos float64) float64 {
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
