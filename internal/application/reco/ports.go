package reco

import (
	"context"

	"movie-reco-api/internal/domain/entity"
)

// Tokenizer 定义应用层对分词器的最小依赖（port）。
// 由基础设施层提供具体实现（例如推理运行时的 tokenize 接口）。
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) (ids []int64, mask []int64, err error)
}

// EmbeddingModel 定义应用层对嵌入模型的最小依赖（port）。
// Forward 返回逐 token 的隐层向量，形状 [seq_len][hidden_dim]。
type EmbeddingModel interface {
	Forward(ctx context.Context, ids []int64, mask []int64) ([][]float32, error)
	Dimension() int
}

// Encoder 文本编码能力：任意文本到定长单位向量
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex 定义应用层对向量索引的最小依赖（port）。
// 索引内部结构（树/图/量化方式）对上层不可见。
// NearestNeighbors 按距离升序返回至多 k 个近邻；k 超过语料规模时返回全部，不报错。
type VectorIndex interface {
	GetVector(ctx context.Context, internalID int) ([]float32, error)
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
	Size() int
}

// CatalogLookup 影片目录的只读查询视图：
// 正向（内部 id -> 影片）与反向（外部目录 id -> 内部 id）。
type CatalogLookup interface {
	ByInternalID(internalID int) (*entity.Movie, bool)
	InternalIDByExternal(externalID int64) (int, bool)
	Size() int
}
