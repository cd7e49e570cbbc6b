package reco

import (
	"strings"

	apperrors "movie-reco-api/pkg/errors"
)

// 元数据拼接的固定参数。字段顺序和上限必须与语料向量离线计算时
// 使用的格式完全一致，模型是针对这一布局校准的；任何偏差不会报错，
// 只会悄悄降低召回质量。
const (
	soupSeparator = ". "
	minSoupLength = 10

	maxSoupKeywords  = 5
	maxSoupGenres    = 3
	maxSoupDirectors = 2
	maxSoupStudios   = 2
	maxSoupCountries = 1
)

// SoupFields 参与元数据拼接的字段
type SoupFields struct {
	Keywords  []string
	Genres    []string
	Directors []string
	Studios   []string
	Countries []string
	Year      string
	Title     string
	Overview  string
}

// SoupFromQuery 从查询构造拼接字段
func SoupFromQuery(q *Query) SoupFields {
	return SoupFields{
		Keywords:  q.Keywords,
		Genres:    q.Genres,
		Directors: q.Directors,
		Studios:   q.Studios,
		Countries: q.Countries,
		Year:      q.Year,
		Title:     q.Title,
		Overview:  q.Overview,
	}
}

// BuildSoup 将结构化字段确定性地拼接为规范文本（"元数据汤"）。
// 顺序固定：keywords(≤5) -> genres(≤3) -> directors(≤2) -> studios(≤2)
// -> countries(≤1) -> year -> title -> overview，段之间以 ". " 连接，
// 空白段直接跳过。
func BuildSoup(f SoupFields) (string, error) {
	if strings.TrimSpace(f.Overview) == "" {
		return "", apperrors.ErrMissingOverview
	}

	parts := make([]string, 0, 16)
	parts = appendCapped(parts, "Keyword", f.Keywords, maxSoupKeywords)
	parts = appendCapped(parts, "Genre", f.Genres, maxSoupGenres)
	parts = appendCapped(parts, "Director", f.Directors, maxSoupDirectors)
	parts = appendCapped(parts, "Studio", f.Studios, maxSoupStudios)
	parts = appendCapped(parts, "Country", f.Countries, maxSoupCountries)

	if y := strings.TrimSpace(f.Year); y != "" {
		parts = append(parts, "Year: "+y)
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		parts = append(parts, "Title: "+t)
	}
	parts = append(parts, "Overview: "+strings.TrimSpace(f.Overview))

	soup := strings.Join(parts, soupSeparator)
	if len(soup) < minSoupLength {
		return "", apperrors.ErrSoupTooShort
	}
	return soup, nil
}

// appendCapped 追加最多 cap 个非空白的 "Label: value" 段
func appendCapped(parts []string, label string, values []string, limit int) []string {
	n := 0
	for _, v := range values {
		if n >= limit {
			break
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, label+": "+v)
		n++
	}
	return parts
}
