package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scifind-backend/internal/models"
	"scifind-backend/internal/queryparser"
)

func TestDedupeByID(t *testing.T) {
	papers := []models.Paper{
		{ID: "w1"}, {ID: "w2"}, {ID: "w1"}, {ID: "w3"}, {ID: "w2"},
	}
	got := dedupeByID(papers)
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"w1", "w2", "w3"}, ids)
}

func TestSortPapers_Recency(t *testing.T) {
	older := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	papers := []models.Paper{
		{ID: "a", PublishedAt: &older},
		{ID: "b", PublishedAt: &newer},
		{ID: "c", PublishedAt: nil},
	}
	sortPapers(papers, SortRecency)
	assert.Equal(t, "b", papers[0].ID)
	assert.Equal(t, "a", papers[1].ID)
	assert.Equal(t, "c", papers[2].ID)
}

func TestSortPapers_RecencyTiebreakByID(t *testing.T) {
	same := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	papers := []models.Paper{
		{ID: "z", PublishedAt: &same},
		{ID: "a", PublishedAt: &same},
	}
	sortPapers(papers, SortRecency)
	assert.Equal(t, "a", papers[0].ID)
	assert.Equal(t, "z", papers[1].ID)
}

func TestSortPapers_RelevancePreservesUpstreamScore(t *testing.T) {
	papers := []models.Paper{
		{ID: "a", RelevanceScore: 0.4, CitationCount: 100},
		{ID: "b", RelevanceScore: 0.9, CitationCount: 1},
		{ID: "c", RelevanceScore: 0.6, CitationCount: 50},
	}
	sortPapers(papers, SortRelevance)
	assert.Equal(t, []string{"b", "c", "a"}, []string{papers[0].ID, papers[1].ID, papers[2].ID})
}

func TestSortPapers_RelevanceTiebreaksOnlyWhenScoresEqual(t *testing.T) {
	papers := []models.Paper{
		{ID: "z", RelevanceScore: 0.5, CitationCount: 5},
		{ID: "a", RelevanceScore: 0.5, CitationCount: 5},
		{ID: "b", RelevanceScore: 0.5, CitationCount: 10},
	}
	sortPapers(papers, SortRelevance)
	assert.Equal(t, []string{"b", "a", "z"}, []string{papers[0].ID, papers[1].ID, papers[2].ID})
}

func TestParseYearToken(t *testing.T) {
	t.Run("literal year", func(t *testing.T) {
		from, to, ok := parseYearToken("2020")
		assert.True(t, ok)
		assert.Equal(t, 2020, *from)
		assert.Equal(t, 2020, *to)
	})

	t.Run("greater than", func(t *testing.T) {
		from, to, ok := parseYearToken(">2019")
		assert.True(t, ok)
		assert.Equal(t, 2019, *from)
		assert.Nil(t, to)
	})

	t.Run("less than", func(t *testing.T) {
		from, to, ok := parseYearToken("<2015")
		assert.True(t, ok)
		assert.Nil(t, from)
		assert.Equal(t, 2015, *to)
	})

	t.Run("range", func(t *testing.T) {
		from, to, ok := parseYearToken("2018-2021")
		assert.True(t, ok)
		assert.Equal(t, 2018, *from)
		assert.Equal(t, 2021, *to)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, _, ok := parseYearToken("abcd")
		assert.False(t, ok)
	})
}

func TestNormalizeRequest_NilParserFallsBackToKeyword(t *testing.T) {
	req := Request{Query: "sparse transformers"}
	got := normalizeRequest(req, nil)
	assert.Equal(t, []string{"sparse transformers"}, got.Topics)
}

// emptyParser returns no structured fields for any input.
type emptyParser struct{}

func (emptyParser) Parse(string) queryparser.Parsed { return queryparser.Parsed{} }

func TestNormalizeRequest_EmptyParseFallsBackToKeyword(t *testing.T) {
	req := Request{Query: "quantum error correction"}
	got := normalizeRequest(req, emptyParser{})
	assert.Equal(t, []string{"quantum error correction"}, got.Topics)
}

func TestNormalizeRequest_MergesParsedFields(t *testing.T) {
	p := queryparser.NewHeuristicParser()
	req := Request{Query: "Geoffrey Hinton papers from MIT 2019-2021"}
	got := normalizeRequest(req, p)
	assert.Contains(t, got.Authors, "Geoffrey Hinton")
	assert.Contains(t, got.Institutions, "MIT")
	assert.Contains(t, got.Years, "2019-2021")
}

func TestFingerprintOf_Stable(t *testing.T) {
	r1 := Request{Topics: []string{"nlp"}, SortBy: SortRecency, Page: 1, PerPage: 50, Principal: "user-1"}
	r2 := r1
	assert.Equal(t, fingerprintOf(r1), fingerprintOf(r2))

	r3 := r1
	r3.Principal = "user-2"
	assert.NotEqual(t, fingerprintOf(r1), fingerprintOf(r3))
}
