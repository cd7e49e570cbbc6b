package reco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-reco-api/internal/domain/entity"
	apperrors "movie-reco-api/pkg/errors"
)

// fakeEncoder 返回固定向量并统计调用次数
type fakeEncoder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEncoder) Encode(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

// fakeIndex 预置向量与近邻结果
type fakeIndex struct {
	vectors   map[int][]float32
	neighbors []Neighbor

	searchCalls int
	lastK       int
}

func (f *fakeIndex) GetVector(_ context.Context, internalID int) ([]float32, error) {
	vec, ok := f.vectors[internalID]
	if !ok {
		return nil, apperrors.ErrVectorNotFound
	}
	return vec, nil
}

func (f *fakeIndex) NearestNeighbors(_ context.Context, _ []float32, k int) ([]Neighbor, error) {
	f.searchCalls++
	f.lastK = k
	if k > len(f.neighbors) {
		k = len(f.neighbors)
	}
	return f.neighbors[:k], nil
}

func (f *fakeIndex) Size() int {
	return len(f.vectors)
}

// fakeCatalog 内存目录
type fakeCatalog struct {
	movies map[int]*entity.Movie
}

func (f *fakeCatalog) ByInternalID(internalID int) (*entity.Movie, bool) {
	m, ok := f.movies[internalID]
	return m, ok
}

func (f *fakeCatalog) InternalIDByExternal(externalID int64) (int, bool) {
	for id, m := range f.movies {
		if m.ExternalID == externalID {
			return id, true
		}
	}
	return 0, false
}

func (f *fakeCatalog) Size() int {
	return len(f.movies)
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		movies: map[int]*entity.Movie{
			42: {InternalID: 42, ExternalID: 550, Title: "Fight Club", Year: "1999",
				Overview: "An insomniac office worker crosses paths with a soap maker."},
			7: {InternalID: 7, ExternalID: 680, Title: "Pulp Fiction", Year: "1994"},
			9: {InternalID: 9, ExternalID: 13, Title: "Forrest Gump", Year: "1994"},
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestEngine_WarmStartSkipsEncoder(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors: map[int][]float32{
			42: {0, 1},
			7:  {1, 0},
			9:  {0.5, 0.5},
		},
		neighbors: []Neighbor{
			{InternalID: 42, Distance: 0},
			{InternalID: 7, Distance: 1.2},
		},
	}
	engine := NewEngine(encoder, index, testCatalog())

	result, err := engine.Recommend(context.Background(), &Query{
		ExternalID: int64Ptr(550),
		TopK:       2,
	})
	require.NoError(t, err)

	assert.Equal(t, PathWarm, result.Path)
	// 暖启动路径绝不触发编码
	assert.Zero(t, encoder.calls)
	require.Len(t, result.Items, 2)
	assert.Equal(t, int64(550), result.Items[0].ExternalID)
	assert.Equal(t, "Fight Club", result.Items[0].Title)
}

func TestEngine_UnknownExternalIDFallsBackToCold(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors:   map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{{InternalID: 42, Distance: 0.5}},
	}
	engine := NewEngine(encoder, index, testCatalog())

	result, err := engine.Recommend(context.Background(), &Query{
		ExternalID: int64Ptr(999999),
		Overview:   "A heist crew plants an idea inside a dream.",
	})
	require.NoError(t, err)

	assert.Equal(t, PathCold, result.Path)
	assert.Equal(t, 1, encoder.calls)
}

func TestEngine_ColdStartRequiresOverview(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{vectors: map[int][]float32{}}
	engine := NewEngine(encoder, index, testCatalog())

	_, err := engine.Recommend(context.Background(), &Query{
		Title:  "Some Movie",
		Genres: []string{"Action"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingOverview)
	assert.Zero(t, encoder.calls)
}

func TestEngine_TopKDefaultsAndBounds(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors:   map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{{InternalID: 42, Distance: 0.5}},
	}
	engine := NewEngine(encoder, index, testCatalog())

	// topK 省略时取默认值
	_, err := engine.Recommend(context.Background(), &Query{
		Overview: "Default topK should be applied here.",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, index.lastK)

	// 越界取值直接拒绝
	for _, k := range []int{-1, 101, 10000} {
		_, err := engine.Recommend(context.Background(), &Query{
			Overview: "Out of range topK.",
			TopK:     k,
		})
		require.Error(t, err, "top_k=%d", k)
		appErr := apperrors.AsAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.CodeTopKOutOfRange, appErr.Code)
	}

	// 边界值合法
	for _, k := range []int{1, 100} {
		_, err := engine.Recommend(context.Background(), &Query{
			Overview: "Boundary topK is accepted.",
			TopK:     k,
		})
		require.NoError(t, err, "top_k=%d", k)
	}
}

func TestEngine_TopKBoundsOverride(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors:   map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{{InternalID: 42, Distance: 0.5}},
	}
	engine := NewEngine(encoder, index, testCatalog(),
		WithTopKBounds(5, 20))

	_, err := engine.Recommend(context.Background(), &Query{
		Overview: "Custom default applies.",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, index.lastK)

	_, err = engine.Recommend(context.Background(), &Query{
		Overview: "Above custom max.",
		TopK:     21,
	})
	require.Error(t, err)
}

func TestEngine_EnrichSkipsMissingCatalogEntries(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors: map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{
			{InternalID: 42, Distance: 0.1},
			{InternalID: 12345, Distance: 0.2}, // 目录中不存在
			{InternalID: 7, Distance: 0.3},
		},
	}
	engine := NewEngine(encoder, index, testCatalog())

	result, err := engine.Recommend(context.Background(), &Query{
		Overview: "Catalog holes must not fail the request.",
		TopK:     3,
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, 42, result.Items[0].InternalID)
	assert.Equal(t, 7, result.Items[1].InternalID)
}

func TestEngine_SimilarityConversion(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors: map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{
			{InternalID: 42, Distance: 0},
			{InternalID: 7, Distance: 3.141592653589793},
		},
	}
	engine := NewEngine(encoder, index, testCatalog())

	result, err := engine.Recommend(context.Background(), &Query{
		Overview: "Distance to similarity conversion.",
		TopK:     2,
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.InDelta(t, 1.0, result.Items[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, result.Items[1].Similarity, 1e-9)
}

func TestEngine_NotReady(t *testing.T) {
	engine := NewEngine(nil, nil, nil)
	_, err := engine.Recommend(context.Background(), &Query{
		Overview: "Pipeline is not loaded.",
	})
	assert.ErrorIs(t, err, apperrors.ErrPipelineNotLoaded)
}

func TestEngine_NilQuery(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{vectors: map[int][]float32{}}
	engine := NewEngine(encoder, index, testCatalog())

	_, err := engine.Recommend(context.Background(), nil)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
}

func TestEngine_WarmStartIncludesSelfMatch(t *testing.T) {
	encoder := &fakeEncoder{vec: []float32{1, 0}}
	index := &fakeIndex{
		vectors: map[int][]float32{42: {0, 1}},
		neighbors: []Neighbor{
			{InternalID: 42, Distance: 0}, // 查询影片自身
			{InternalID: 7, Distance: 0.8},
		},
	}
	engine := NewEngine(encoder, index, testCatalog())

	result, err := engine.Recommend(context.Background(), &Query{
		ExternalID: int64Ptr(550),
		TopK:       2,
	})
	require.NoError(t, err)

	// 自身命中不剔除，由调用方决定如何处理
	require.Len(t, result.Items, 2)
	assert.Equal(t, int64(550), result.Items[0].ExternalID)
}
