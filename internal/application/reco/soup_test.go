package reco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "movie-reco-api/pkg/errors"
)

func TestBuildSoup_FieldOrder(t *testing.T) {
	soup, err := BuildSoup(SoupFields{
		Keywords:  []string{"magic", "school"},
		Genres:    []string{"Fantasy"},
		Directors: []string{"Chris Columbus"},
		Studios:   []string{"Warner Bros."},
		Countries: []string{"GB"},
		Year:      "2001",
		Title:     "Harry Potter and the Philosopher's Stone",
		Overview:  "A young wizard discovers his magical heritage.",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"Keyword: magic. Keyword: school. Genre: Fantasy. Director: Chris Columbus. "+
			"Studio: Warner Bros.. Country: GB. Year: 2001. "+
			"Title: Harry Potter and the Philosopher's Stone. "+
			"Overview: A young wizard discovers his magical heritage.",
		soup)
}

func TestBuildSoup_OverviewOnly(t *testing.T) {
	soup, err := BuildSoup(SoupFields{
		Overview: "A young wizard discovers his magical heritage.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Overview: A young wizard discovers his magical heritage.", soup)
}

func TestBuildSoup_CapsAppliedPerList(t *testing.T) {
	soup, err := BuildSoup(SoupFields{
		Keywords: []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"},
		Genres:   []string{"g1", "g2", "g3", "g4"},
		Overview: "Plenty of metadata beyond the caps.",
	})
	require.NoError(t, err)

	assert.Contains(t, soup, "Keyword: k5")
	assert.NotContains(t, soup, "Keyword: k6")
	assert.Contains(t, soup, "Genre: g3")
	assert.NotContains(t, soup, "Genre: g4")
}

func TestBuildSoup_BlankEntriesSkipped(t *testing.T) {
	soup, err := BuildSoup(SoupFields{
		Genres:   []string{"", "  ", "Drama"},
		Year:     "   ",
		Overview: "Blank segments never appear in the soup.",
	})
	require.NoError(t, err)

	assert.NotContains(t, soup, "Genre: .")
	assert.NotContains(t, soup, "Year:")
	assert.Contains(t, soup, "Genre: Drama")
}

func TestBuildSoup_MissingOverview(t *testing.T) {
	_, err := BuildSoup(SoupFields{
		Title:  "Some Movie",
		Genres: []string{"Action"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingOverview)
}

func TestBuildSoup_MinLengthBoundary(t *testing.T) {
	// 单字符 overview 拼出的 "Overview: x" 刚好越过最小长度
	_, err := BuildSoup(SoupFields{Overview: "x"})
	require.NoError(t, err)

	_, err = BuildSoup(SoupFields{Overview: " "})
	assert.ErrorIs(t, err, apperrors.ErrMissingOverview)
}

func TestBuildSoup_Deterministic(t *testing.T) {
	fields := SoupFields{
		Keywords: []string{"space", "rebellion"},
		Genres:   []string{"Sci-Fi", "Adventure"},
		Year:     "1977",
		Title:    "Star Wars",
		Overview: "A farm boy joins a rebellion against a galactic empire.",
	}

	first, err := BuildSoup(fields)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := BuildSoup(fields)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
