// Package vecindex 提供本地向量快照索引。
// 快照是离线计算好的定长向量矩阵，按内部 id（0..N-1）排列；
// 本包只做加载与只读检索，不负责构建。
package vecindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"movie-reco-api/internal/application/reco"
	apperrors "movie-reco-api/pkg/errors"
	"movie-reco-api/pkg/metrics"
)

var tracer = otel.Tracer("vecindex")

const backendName = "flat"

// 快照文件头：magic + 维度 + 条数，小端序，其后是 count*dim 个 float32
var fileMagic = [4]byte{'M', 'V', 'E', 'C'}

// FlatIndex 精确角距离检索的平面索引。
// NearestNeighbors 与近似索引的契约一致：按距离升序、k 封顶到语料规模。
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

var _ reco.VectorIndex = (*FlatIndex)(nil)

// Load 从快照文件加载索引
func Load(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector snapshot %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("invalid snapshot magic %q in %s", magic, path)
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("failed to read snapshot dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read snapshot count: %w", err)
	}
	if dim == 0 || dim > 1<<14 {
		return nil, fmt.Errorf("unreasonable snapshot dimension %d", dim)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vectors[i] = vec
	}

	return &FlatIndex{
		dim:     int(dim),
		vectors: vectors,
	}, nil
}

// New 由内存中的向量构建索引（测试与工具共用）。
// 所有向量维度必须一致。
func New(dim int, vectors [][]float32) (*FlatIndex, error) {
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return &FlatIndex{dim: dim, vectors: vectors}, nil
}

// WriteFile 将向量矩阵写为快照文件（离线构建工具使用）
func WriteFile(path string, dim int, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.Write(fileMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return err
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("failed to write vector %d: %w", i, err)
		}
	}
	return w.Flush()
}

// Dimension 向量维度
func (idx *FlatIndex) Dimension() int {
	return idx.dim
}

// Size 语料规模
func (idx *FlatIndex) Size() int {
	return len(idx.vectors)
}

// GetVector 按内部 id 取预计算向量，返回副本
func (idx *FlatIndex) GetVector(ctx context.Context, internalID int) ([]float32, error) {
	if internalID < 0 || internalID >= len(idx.vectors) {
		return nil, apperrors.ErrVectorNotFound.
			WithDetail(fmt.Sprintf("internal id %d out of range [0, %d)", internalID, len(idx.vectors)))
	}
	out := make([]float32, idx.dim)
	copy(out, idx.vectors[internalID])
	return out, nil
}

// NearestNeighbors 返回按角距离升序的至多 k 个近邻。
// 语料向量和查询向量均为单位向量，距离 = arccos(点积)。
// 同距离时保持内部 id 顺序（稳定排序）。
func (idx *FlatIndex) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]reco.Neighbor, error) {
	_, span := tracer.Start(ctx, "vecindex.NearestNeighbors",
		trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	if len(vector) != idx.dim {
		metrics.IndexSearchTotal.WithLabelValues(backendName, "error").Inc()
		return nil, apperrors.New(apperrors.CodeVectorIndexError, "query vector dimension mismatch").
			WithDetail(fmt.Sprintf("got %d, want %d", len(vector), idx.dim))
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}
	if k <= 0 {
		return []reco.Neighbor{}, nil
	}

	start := time.Now()

	neighbors := make([]reco.Neighbor, len(idx.vectors))
	for i, v := range idx.vectors {
		neighbors[i] = reco.Neighbor{
			InternalID: i,
			Distance:   angularDistance(vector, v),
		}
	}
	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})
	neighbors = neighbors[:k]

	metrics.IndexSearchDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	metrics.IndexSearchTotal.WithLabelValues(backendName, "ok").Inc()
	span.SetAttributes(attribute.Int("result_count", len(neighbors)))
	return neighbors, nil
}

// angularDistance 两个单位向量间的角距离 arccos(cos θ) ∈ [0, π]
func angularDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	// 浮点误差可能越过 [-1, 1]
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}
