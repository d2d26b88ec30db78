package integration_test

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scifind-backend/internal/models"
	"scifind-backend/internal/repository"
	"scifind-backend/test/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaperRepository_Integration(t *testing.T) {
	dbutil := testutil.SetupTestDatabase(t, false)
	defer dbutil.Cleanup()

	repo := repository.NewPaperRepository(dbutil.DB(), discardLogger())
	ctx := context.Background()

	paper := &models.Paper{
		ID:             "arxiv_2401.00001",
		Title:          "Integration Test Paper",
		SourceProvider: "arxiv",
		SourceID:       "2401.00001",
		Language:       "en",
	}
	require.NoError(t, repo.Create(ctx, paper))

	got, err := repo.GetByID(ctx, paper.ID)
	require.NoError(t, err)
	require.Equal(t, paper.Title, got.Title)

	paper.CitationCount = 7
	require.NoError(t, repo.Update(ctx, paper))

	got, err = repo.GetByID(ctx, paper.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.CitationCount)

	require.NoError(t, repo.Touch(ctx, paper.ID))

	require.NoError(t, repo.Delete(ctx, paper.ID))
	_, err = repo.GetByID(ctx, paper.ID)
	require.Error(t, err)
}

func TestPaperRepository_UpsertBatch_Integration(t *testing.T) {
	dbutil := testutil.SetupTestDatabase(t, false)
	defer dbutil.Cleanup()

	repo := repository.NewPaperRepository(dbutil.DB(), discardLogger())
	ctx := context.Background()

	batch := []models.Paper{
		{ID: "p1", Title: "First", SourceProvider: "openalex", SourceID: "W1", Language: "en"},
		{ID: "p2", Title: "Second", SourceProvider: "openalex", SourceID: "W2", Language: "en"},
	}
	require.NoError(t, repo.UpsertBatch(ctx, batch))

	batch[0].Title = "First Revised"
	require.NoError(t, repo.UpsertBatch(ctx, batch[:1]))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "First Revised", got.Title)
}

func TestSearchRepository_Integration(t *testing.T) {
	dbutil := testutil.SetupTestDatabase(t, false)
	defer dbutil.Cleanup()

	repo := repository.NewSearchRepository(dbutil.DB(), discardLogger())
	ctx := context.Background()

	userID := "user_1"
	history := &models.SearchHistory{
		ID:          "sh_1",
		Query:       "graph neural networks",
		UserID:      &userID,
		ResultCount: 12,
		Duration:    250,
		Providers:   []string{"openalex"},
		RequestedAt: time.Now(),
	}
	require.NoError(t, repo.CreateSearchHistory(ctx, history))

	rows, err := repo.GetSearchHistory(ctx, &userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "graph neural networks", rows[0].Query)

	stats, err := repo.GetUserSearchStats(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalQueries)
}

func TestRepository_WithPostgreSQL_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	dbutil := testutil.SetupTestDatabase(t, true)
	defer dbutil.Cleanup()

	repo := repository.NewPaperRepository(dbutil.DB(), discardLogger())
	ctx := context.Background()

	paper := &models.Paper{
		ID:             "pg_1",
		Title:          "Postgres-backed paper",
		SourceProvider: "openalex",
		SourceID:       "W100",
		Language:       "en",
	}
	require.NoError(t, repo.Create(ctx, paper))

	got, err := repo.GetByID(ctx, paper.ID)
	require.NoError(t, err)
	require.Equal(t, paper.Title, got.Title)
}
