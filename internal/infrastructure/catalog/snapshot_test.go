package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-reco-api/internal/domain/entity"
)

func TestBuild_ForwardAndReverseLookup(t *testing.T) {
	s, err := Build([]*entity.Movie{
		{InternalID: 0, ExternalID: 550, Title: "Fight Club"},
		{InternalID: 1, ExternalID: 680, Title: "Pulp Fiction"},
		{InternalID: 2, ExternalID: 13, Title: "Forrest Gump"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Size())

	m, ok := s.ByInternalID(1)
	require.True(t, ok)
	assert.Equal(t, "Pulp Fiction", m.Title)

	// 反向表是正向表的逆映射
	for _, internalID := range []int{0, 1, 2} {
		m, ok := s.ByInternalID(internalID)
		require.True(t, ok)
		back, ok := s.InternalIDByExternal(m.ExternalID)
		require.True(t, ok)
		assert.Equal(t, internalID, back)
	}
}

func TestBuild_MissLookups(t *testing.T) {
	s, err := Build([]*entity.Movie{
		{InternalID: 0, ExternalID: 550, Title: "Fight Club"},
	})
	require.NoError(t, err)

	_, ok := s.ByInternalID(99)
	assert.False(t, ok)

	_, ok = s.InternalIDByExternal(99999)
	assert.False(t, ok)
}

func TestBuild_UndeclaredExternalIDSkipsReverseMap(t *testing.T) {
	s, err := Build([]*entity.Movie{
		{InternalID: 0, ExternalID: 0, Title: "No External"},
		{InternalID: 1, ExternalID: -5, Title: "Negative External"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Size())

	_, ok := s.InternalIDByExternal(0)
	assert.False(t, ok)
	_, ok = s.InternalIDByExternal(-5)
	assert.False(t, ok)
}

func TestBuild_DuplicateInternalID(t *testing.T) {
	_, err := Build([]*entity.Movie{
		{InternalID: 0, ExternalID: 550},
		{InternalID: 0, ExternalID: 680},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate internal id")
}

func TestBuild_DuplicateExternalID(t *testing.T) {
	_, err := Build([]*entity.Movie{
		{InternalID: 0, ExternalID: 550},
		{InternalID: 1, ExternalID: 550},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already mapped")
}

func TestBuild_NegativeInternalID(t *testing.T) {
	_, err := Build([]*entity.Movie{
		{InternalID: -1, ExternalID: 550},
	})
	require.Error(t, err)
}

func TestLoad_JSONSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies_map.json")
	payload := `[
		{"internal_id": 0, "movie_id": 550, "title": "Fight Club", "year": "1999"},
		{"internal_id": 1, "movie_id": 680, "title": "Pulp Fiction", "genres": ["Crime", "Drama"]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Size())

	id, ok := s.InternalIDByExternal(550)
	require.True(t, ok)
	m, ok := s.ByInternalID(id)
	require.True(t, ok)
	assert.Equal(t, "Fight Club", m.Title)
	assert.Equal(t, "1999", m.Year)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
