package follow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scifind-backend/internal/models"
)

func TestDedupeByID(t *testing.T) {
	papers := []models.Paper{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	got := dedupeByID(papers)
	assert.Len(t, got, 2)
}

func TestSortByYearDesc(t *testing.T) {
	y2020 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	y2022 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	papers := []models.Paper{
		{ID: "old", PublishedAt: &y2020},
		{ID: "new", PublishedAt: &y2022},
		{ID: "undated"},
	}
	sortByYearDesc(papers)
	assert.Equal(t, []string{"new", "old", "undated"}, []string{papers[0].ID, papers[1].ID, papers[2].ID})
}

func TestSortByYearDesc_TiebreakByID(t *testing.T) {
	y := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	papers := []models.Paper{
		{ID: "z", PublishedAt: &y},
		{ID: "a", PublishedAt: &y},
	}
	sortByYearDesc(papers)
	assert.Equal(t, "a", papers[0].ID)
}

func TestToConverted_HandlesNilPointers(t *testing.T) {
	p := models.Paper{ID: "p1", Title: "t"}
	cp := toConverted(p)
	assert.Equal(t, "p1", cp.ID)
	assert.Equal(t, "", cp.DOI)
	assert.Equal(t, "", cp.Abstract)
}
