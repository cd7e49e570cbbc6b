// Package catalog 提供影片目录快照的加载与只读查询
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"movie-reco-api/internal/domain/entity"
)

// Snapshot 一次性加载的目录快照：
// 正向表（内部 id -> 影片）与反向表（外部目录 id -> 内部 id）。
// 反向表严格是正向表在声明了外部 id 的条目上的逆映射。
// 加载完成后只读，进程生命周期内不再变更。
type Snapshot struct {
	byInternal map[int]*entity.Movie
	byExternal map[int64]int
}

// Load 从 JSON 快照文件加载目录。
// 重复的内部 id 或外部 id 视为快照损坏，直接报错。
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog snapshot %s: %w", path, err)
	}

	var movies []*entity.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("failed to parse catalog snapshot %s: %w", path, err)
	}

	return Build(movies)
}

// Build 由影片列表构建快照（加载与测试共用）
func Build(movies []*entity.Movie) (*Snapshot, error) {
	s := &Snapshot{
		byInternal: make(map[int]*entity.Movie, len(movies)),
		byExternal: make(map[int64]int, len(movies)),
	}

	for i, m := range movies {
		if m == nil {
			continue
		}
		if m.InternalID < 0 {
			return nil, fmt.Errorf("catalog entry %d: negative internal id %d", i, m.InternalID)
		}
		if _, dup := s.byInternal[m.InternalID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate internal id %d", i, m.InternalID)
		}
		s.byInternal[m.InternalID] = m

		// 外部 id 非正值视为未声明，不进反向表
		if m.ExternalID > 0 {
			if prev, dup := s.byExternal[m.ExternalID]; dup {
				return nil, fmt.Errorf("catalog entry %d: external id %d already mapped to internal id %d",
					i, m.ExternalID, prev)
			}
			s.byExternal[m.ExternalID] = m.InternalID
		}
	}

	return s, nil
}

// ByInternalID 按内部 id 查影片
func (s *Snapshot) ByInternalID(internalID int) (*entity.Movie, bool) {
	m, ok := s.byInternal[internalID]
	return m, ok
}

// InternalIDByExternal 按外部目录 id 反查内部 id
func (s *Snapshot) InternalIDByExternal(externalID int64) (int, bool) {
	id, ok := s.byExternal[externalID]
	return id, ok
}

// Size 目录条目数
func (s *Snapshot) Size() int {
	return len(s.byInternal)
}
