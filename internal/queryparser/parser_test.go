package queryparser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scifind-backend/internal/queryparser"
)

func TestHeuristicParser_Parse(t *testing.T) {
	p := queryparser.NewHeuristicParser()

	t.Run("empty text yields empty extraction", func(t *testing.T) {
		got := p.Parse("")
		assert.Empty(t, got.Keywords)
		assert.Empty(t, got.Authors)
		assert.Empty(t, got.Years)
		assert.Empty(t, got.Institutions)
	})

	t.Run("detects known institution", func(t *testing.T) {
		got := p.Parse("transformer papers from MIT")
		assert.Contains(t, got.Institutions, "MIT")
	})

	t.Run("detects literal year", func(t *testing.T) {
		got := p.Parse("papers about diffusion models 2022")
		assert.Contains(t, got.Years, "2022")
	})

	t.Run("detects year comparison and range tokens", func(t *testing.T) {
		got := p.Parse("graph neural networks >2019")
		assert.Contains(t, got.Years, ">2019")

		got = p.Parse("surveys published 2018-2021")
		assert.Contains(t, got.Years, "2018-2021")
	})

	t.Run("ignores implausible year-shaped numbers", func(t *testing.T) {
		got := p.Parse("top 9999 results")
		assert.NotContains(t, got.Years, "9999")
	})

	t.Run("detects a capitalized multi-word author name", func(t *testing.T) {
		got := p.Parse("recent work by Geoffrey Hinton on representation learning")
		assert.Contains(t, got.Authors, "Geoffrey Hinton")
	})

	t.Run("remaining tokens fall back to lowercase keywords", func(t *testing.T) {
		got := p.Parse("sparse attention mechanisms")
		assert.ElementsMatch(t, []string{"sparse", "attention", "mechanisms"}, got.Keywords)
	})

	t.Run("fully unstructured text treats everything as keywords", func(t *testing.T) {
		got := p.Parse("quantum error correction")
		assert.Empty(t, got.Authors)
		assert.Empty(t, got.Years)
		assert.Empty(t, got.Institutions)
		assert.ElementsMatch(t, []string{"quantum", "error", "correction"}, got.Keywords)
	})
}

func TestHeuristicParser_WithInstitutions(t *testing.T) {
	p := queryparser.NewHeuristicParser().WithInstitutions("Santa Fe Institute")

	got := p.Parse("complexity science at Santa Fe Institute")
	assert.Contains(t, got.Institutions, "Santa Fe Institute")
}
