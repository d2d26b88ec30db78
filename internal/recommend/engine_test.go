package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scifind-backend/internal/models"
)

func TestTopicMatchScore(t *testing.T) {
	p := models.Paper{Categories: []models.Category{{Name: "Machine Learning"}, {Name: "Robotics"}}}

	t.Run("no topics yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, topicMatchScore(p, nil))
	})

	t.Run("partial match", func(t *testing.T) {
		score := topicMatchScore(p, []string{"machine learning", "quantum computing"})
		assert.Equal(t, 0.5, score)
	})

	t.Run("full match", func(t *testing.T) {
		score := topicMatchScore(p, []string{"machine learning"})
		assert.Equal(t, 1.0, score)
	})
}

func TestAuthorMatchScore(t *testing.T) {
	p := models.Paper{Authors: []models.Author{{Name: "Geoffrey Hinton"}}}

	assert.Equal(t, 1.0, authorMatchScore(p, []string{"Geoffrey Hinton"}))
	assert.Equal(t, 0.0, authorMatchScore(p, []string{"Yann LeCun"}))
}

func TestRecencyWeight(t *testing.T) {
	now := time.Now().Year()
	recent := time.Date(now, 1, 1, 0, 0, 0, 0, time.UTC)
	old := time.Date(now-20, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, recencyWeight(models.Paper{PublishedAt: &recent}, now), 0.001)
	assert.Equal(t, 0.0, recencyWeight(models.Paper{PublishedAt: &old}, now))
	assert.Equal(t, 0.0, recencyWeight(models.Paper{PublishedAt: nil}, now))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("Machine Learning", "machine learning"))
	assert.False(t, containsFold("Robotics", "quantum"))
	assert.False(t, containsFold("anything", ""))
}
