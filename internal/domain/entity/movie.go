// Package entity 定义领域实体
package entity

import (
	"strings"
)

// Movie 影片目录条目
// InternalID 是索引内部的稠密 id（0..N-1），ExternalID 是 TMDB 等外部目录 id。
// 快照加载完成后不可变。
type Movie struct {
	InternalID int      `json:"internal_id"`
	ExternalID int64    `json:"movie_id"`
	Title      string   `json:"title"`
	Year       string   `json:"year,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	PosterPath string   `json:"poster_path,omitempty"`

	// 以下字段仅用于冷启动的元数据拼接，快照中可选
	Directors []string `json:"directors,omitempty"`
	Studios   []string `json:"studios,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// HasOverview 检查是否有非空白简介
func (m *Movie) HasOverview() bool {
	return m != nil && strings.TrimSpace(m.Overview) != ""
}
