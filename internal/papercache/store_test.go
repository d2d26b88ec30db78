package papercache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scifind-backend/internal/models"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/repository"
)

func newTestStore(t *testing.T) Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Paper{}, &models.Author{}, &models.Category{}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewPaperRepository(db, logger)
	return New(repo, logger)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	paper := models.Paper{
		ID:             "p1",
		Title:          "Attention Is All You Need",
		SourceProvider: "openalex",
		SourceID:       "W1",
		Language:       "en",
	}
	require.NoError(t, s.Put(ctx, paper))

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", got.Title)
}

func TestStore_PutMany_ThenGetMany_OrderIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	papers := []models.Paper{
		{ID: "p1", Title: "First", SourceProvider: "openalex", SourceID: "W1", Language: "en"},
		{ID: "p2", Title: "Second", SourceProvider: "openalex", SourceID: "W2", Language: "en"},
		{ID: "p3", Title: "Third", SourceProvider: "openalex", SourceID: "W3", Language: "en"},
	}
	require.NoError(t, s.PutMany(ctx, papers))

	got, err := s.GetMany(ctx, []string{"p3", "p1", "p2"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := make(map[string]models.Paper, len(got))
	for _, p := range got {
		byID[p.ID] = p
	}
	assert.Equal(t, "First", byID["p1"].Title)
	assert.Equal(t, "Second", byID["p2"].Title)
	assert.Equal(t, "Third", byID["p3"].Title)
}

func TestStore_GetMany_ToleratesMissingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, models.Paper{
		ID: "p1", Title: "Only One", SourceProvider: "openalex", SourceID: "W1", Language: "en",
	}))

	got, err := s.GetMany(ctx, []string{"p1", "does-not-exist"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestStore_Put_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	paper := models.Paper{ID: "p1", Title: "v1", SourceProvider: "openalex", SourceID: "W1", Language: "en"}
	require.NoError(t, s.Put(ctx, paper))

	paper.Title = "v2"
	require.NoError(t, s.Put(ctx, paper))

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
}

func TestStore_Touch_BumpsUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, models.Paper{
		ID: "p1", Title: "Touch Me", SourceProvider: "openalex", SourceID: "W1", Language: "en",
	}))
	before, err := s.Get(ctx, "p1")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Touch(ctx, "p1"))

	after, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.AccessCount+1, after.AccessCount)
}

func TestIsFresh(t *testing.T) {
	fresh := &models.Paper{UpdatedAt: time.Now()}
	assert.True(t, IsFresh(fresh))

	stale := &models.Paper{UpdatedAt: time.Now().Add(-48 * time.Hour)}
	assert.False(t, IsFresh(stale))

	assert.False(t, IsFresh(nil))
}

func TestFromUpstream_CarriesRelevanceScore(t *testing.T) {
	cp := openalex.ConvertedPaper{
		ID:             "p1",
		Title:          "Some Paper",
		SourceID:       "W1",
		CitationCount:  7,
		RelevanceScore: 0.87,
	}
	paper := FromUpstream(cp)
	assert.Equal(t, 0.87, paper.RelevanceScore)
	assert.Equal(t, 7, paper.CitationCount)
}
