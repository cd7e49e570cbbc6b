package dto

import (
	"strconv"
	"strings"

	"movie-reco-api/internal/application/reco"
)

// RecommendRequest 推荐请求。
// movie_id 命中目录时走暖启动，其余元数据字段可省略；
// 未命中或未提供时按冷启动处理，overview 必填。
type RecommendRequest struct {
	MovieID *int64 `json:"movie_id"`

	Title     string   `json:"title"`
	Overview  string   `json:"overview"`
	Year      string   `json:"year"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Studios   []string `json:"studios"`
	Countries []string `json:"countries"`
	Keywords  []string `json:"keywords"`

	TopK int `json:"top_k"`
}

// ToQuery 转换为应用层查询
func (r *RecommendRequest) ToQuery() *reco.Query {
	return &reco.Query{
		ExternalID: r.MovieID,
		Title:      r.Title,
		Overview:   r.Overview,
		Year:       r.Year,
		Genres:     r.Genres,
		Directors:  r.Directors,
		Studios:    r.Studios,
		Countries:  r.Countries,
		Keywords:   r.Keywords,
		TopK:       r.TopK,
	}
}

// CanonicalString 返回请求的规范化描述，用于构造缓存键。
// 字段顺序固定，与 JSON 字段顺序无关。
func (r *RecommendRequest) CanonicalString() string {
	var b strings.Builder
	if r.MovieID != nil {
		b.WriteString("id=")
		b.WriteString(strconv.FormatInt(*r.MovieID, 10))
		b.WriteString(";")
	}
	writeField := func(name, value string) {
		if v := strings.TrimSpace(value); v != "" {
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(v)
			b.WriteString(";")
		}
	}
	writeList := func(name string, values []string) {
		if len(values) > 0 {
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(strings.Join(values, ","))
			b.WriteString(";")
		}
	}
	writeField("title", r.Title)
	writeField("overview", r.Overview)
	writeField("year", r.Year)
	writeList("genres", r.Genres)
	writeList("directors", r.Directors)
	writeList("studios", r.Studios)
	writeList("countries", r.Countries)
	writeList("keywords", r.Keywords)
	return b.String()
}

// SynopsisRequest 按剧情简介推荐请求（始终冷启动）。
// genre/year/title 是可选提示，与简介一起拼入同一份元数据汤。
type SynopsisRequest struct {
	Synopsis string `json:"synopsis" binding:"required,min=10,max=5000"`
	Genre    string `json:"genre"`
	Year     string `json:"year"`
	Title    string `json:"title"`
	TopK     int    `json:"top_k"`
}

// ToQuery 转换为应用层查询
func (r *SynopsisRequest) ToQuery() *reco.Query {
	q := &reco.Query{
		Title:    r.Title,
		Overview: r.Synopsis,
		Year:     r.Year,
		TopK:     r.TopK,
	}
	if strings.TrimSpace(r.Genre) != "" {
		q.Genres = []string{r.Genre}
	}
	return q
}

// MovieRecommendation 单条推荐结果
type MovieRecommendation struct {
	MovieID    int64    `json:"movie_id"`
	Title      string   `json:"title"`
	Year       string   `json:"year,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	PosterPath string   `json:"poster_path,omitempty"`
	Distance   float64  `json:"distance"`
	Similarity float64  `json:"similarity"`
}

// RecommendResponse 推荐响应
type RecommendResponse struct {
	Path  string                `json:"path"`
	Count int                   `json:"count"`
	Items []MovieRecommendation `json:"items"`
}

// ToRecommendResponse 将应用层结果转换为响应 DTO
func ToRecommendResponse(result *reco.Result) RecommendResponse {
	items := make([]MovieRecommendation, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, MovieRecommendation{
			MovieID:    it.ExternalID,
			Title:      it.Title,
			Year:       it.Year,
			Overview:   it.Overview,
			Genres:     it.Genres,
			PosterPath: it.PosterPath,
			Distance:   it.Distance,
			Similarity: it.Similarity,
		})
	}
	return RecommendResponse{
		Path:  string(result.Path),
		Count: len(items),
		Items: items,
	}
}
