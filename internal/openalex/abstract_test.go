package openalex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructAbstract(t *testing.T) {
	t.Run("simple index", func(t *testing.T) {
		idx := map[string][]int{
			"Machine":  {0},
			"learning": {1},
			"is":       {2},
			"fun":      {3},
		}
		assert.Equal(t, "Machine learning is fun", reconstructAbstract(idx))
	})

	t.Run("empty index yields null abstract", func(t *testing.T) {
		assert.Equal(t, "", reconstructAbstract(nil))
		assert.Equal(t, "", reconstructAbstract(map[string][]int{}))
	})

	t.Run("repeated token at multiple positions", func(t *testing.T) {
		idx := map[string][]int{
			"the": {0, 2},
			"cat": {1},
			"sat": {3},
		}
		assert.Equal(t, "the cat the sat", reconstructAbstract(idx))
	})

	t.Run("token placed past declared length does not panic", func(t *testing.T) {
		idx := map[string][]int{
			"a":   {0},
			"far": {50},
		}
		assert.NotPanics(t, func() {
			result := reconstructAbstract(idx)
			assert.Contains(t, result, "a")
			assert.Contains(t, result, "far")
		})
	})

	t.Run("negative position is ignored rather than panicking", func(t *testing.T) {
		idx := map[string][]int{
			"ok":  {0},
			"bad": {-1},
		}
		assert.NotPanics(t, func() {
			reconstructAbstract(idx)
		})
	})
}

func TestFilterBuildFilterParam(t *testing.T) {
	yearFrom := 2020
	f := Filter{
		TitleAbstractGroups: [][]string{{"machine learning"}, {"transformers"}},
		AuthorIDs:           []string{"A1", "A2"},
		YearFrom:            &yearFrom,
	}
	param := f.buildFilterParam()
	assert.Contains(t, param, "title_and_abstract.search:machine learning")
	assert.Contains(t, param, "title_and_abstract.search:transformers")
	assert.Contains(t, param, "authorships.author.id:A1|A2")
	assert.Contains(t, param, "publication_year:>2019")
}
