package reco

// QueryPath 请求最终走的检索路径
type QueryPath string

const (
	// PathWarm 暖启动：直接复用索引中预计算的向量，不触发编码
	PathWarm QueryPath = "warm"
	// PathCold 冷启动：按需拼接元数据并实时编码
	PathCold QueryPath = "cold"
)

// Query 推荐请求（warm/cold 联合形态）。
// ExternalID 命中目录反查表时走暖启动；否则必须携带 Overview 走冷启动。
type Query struct {
	ExternalID *int64

	Title    string
	Overview string
	Year     string

	Genres    []string
	Directors []string
	Studios   []string
	Countries []string
	Keywords  []string

	TopK int
}

// Neighbor 索引返回的近邻（内部 id + 原生距离）
type Neighbor struct {
	InternalID int
	Distance   float64
}

// NeighborResult 富化后的近邻结果
type NeighborResult struct {
	InternalID int
	ExternalID int64
	Distance   float64
	Similarity float64

	Title      string
	Overview   string
	Year       string
	Genres     []string
	PosterPath string
}

// Result 推荐结果：按距离升序（相似度降序）排列，保持索引返回顺序
type Result struct {
	Path  QueryPath
	Items []NeighborResult
}
