package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-reco-api/internal/application/reco"
)

func TestCanonicalString_Deterministic(t *testing.T) {
	id := int64(550)
	req := &RecommendRequest{
		MovieID:  &id,
		Title:    "Fight Club",
		Overview: "An insomniac office worker.",
		Genres:   []string{"Drama", "Thriller"},
	}

	first := req.CanonicalString()
	assert.Equal(t, first, req.CanonicalString())
	assert.Contains(t, first, "id=550")
	assert.Contains(t, first, "genres=Drama,Thriller")
}

func TestCanonicalString_SkipsEmptyFields(t *testing.T) {
	req := &RecommendRequest{Overview: "Only an overview."}
	s := req.CanonicalString()

	assert.NotContains(t, s, "id=")
	assert.NotContains(t, s, "title=")
	assert.NotContains(t, s, "genres=")
	assert.Contains(t, s, "overview=Only an overview.")
}

func TestCanonicalString_DistinguishesRequests(t *testing.T) {
	a := &RecommendRequest{Overview: "Same text", Genres: []string{"Drama"}}
	b := &RecommendRequest{Overview: "Same text", Genres: []string{"Action"}}
	assert.NotEqual(t, a.CanonicalString(), b.CanonicalString())
}

func TestSynopsisToQuery(t *testing.T) {
	req := &SynopsisRequest{
		Synopsis: "A young wizard attends a school of magic.",
		Genre:    "Fantasy",
		Year:     "2001",
		TopK:     3,
	}

	q := req.ToQuery()
	assert.Equal(t, req.Synopsis, q.Overview)
	assert.Equal(t, []string{"Fantasy"}, q.Genres)
	assert.Equal(t, "2001", q.Year)
	assert.Equal(t, 3, q.TopK)

	// 无提示时不产生空的 genre 列表
	q = (&SynopsisRequest{Synopsis: "Just a synopsis long enough."}).ToQuery()
	assert.Nil(t, q.Genres)
}

func TestToRecommendResponse(t *testing.T) {
	result := &reco.Result{
		Path: reco.PathWarm,
		Items: []reco.NeighborResult{
			{InternalID: 0, ExternalID: 550, Title: "Fight Club", Distance: 0.2, Similarity: 0.936},
			{InternalID: 1, ExternalID: 680, Title: "Pulp Fiction", Distance: 0.9, Similarity: 0.713},
		},
	}

	resp := ToRecommendResponse(result)
	assert.Equal(t, "warm", resp.Path)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, int64(550), resp.Items[0].MovieID)
	assert.Equal(t, 0.936, resp.Items[0].Similarity)
}

func TestToQuery_MapsAllFields(t *testing.T) {
	id := int64(42)
	req := &RecommendRequest{
		MovieID:   &id,
		Title:     "T",
		Overview:  "O",
		Year:      "2001",
		Genres:    []string{"g"},
		Directors: []string{"d"},
		Studios:   []string{"s"},
		Countries: []string{"c"},
		Keywords:  []string{"k"},
		TopK:      7,
	}

	q := req.ToQuery()
	require.NotNil(t, q.ExternalID)
	assert.Equal(t, int64(42), *q.ExternalID)
	assert.Equal(t, "T", q.Title)
	assert.Equal(t, []string{"k"}, q.Keywords)
	assert.Equal(t, 7, q.TopK)
}
