package userstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scifind-backend/internal/models"
)

// runStoreSuite exercises spec.md §4.3's six consistency rules and §8's properties
// 1-4, 7 and 10 identically against any Store implementation.
func runStoreSuite(t *testing.T, newStore func() Store) {
	ctx := context.Background()

	t.Run("like removes from disliked (rule 1)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-1"})
		require.NoError(t, err)

		require.NoError(t, s.Dislike(ctx, u.ID, "W1"))
		require.NoError(t, s.Like(ctx, u.ID, "W1"))

		liked, disliked, err := s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"W1"}, liked)
		assert.Empty(t, disliked)
	})

	t.Run("dislike removes from liked and from likes folder (rule 2)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-2"})
		require.NoError(t, err)

		require.NoError(t, s.Like(ctx, u.ID, "W1"))
		require.NoError(t, s.Dislike(ctx, u.ID, "W1"))

		liked, disliked, err := s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, liked)
		assert.ElementsMatch(t, []string{"W1"}, disliked)

		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		assert.NotContains(t, folder.PaperIDs, "W1")
	})

	t.Run("like inserts at the head of likes (rule 3)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-3"})
		require.NoError(t, err)

		require.NoError(t, s.Like(ctx, u.ID, "W1"))
		require.NoError(t, s.Like(ctx, u.ID, "W2"))

		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		require.Equal(t, []string{"W2", "W1"}, folder.PaperIDs)
	})

	t.Run("unlike removes from likes folder (rule 4)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-4"})
		require.NoError(t, err)

		require.NoError(t, s.Like(ctx, u.ID, "W1"))
		require.NoError(t, s.Unlike(ctx, u.ID, "W1"))

		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		assert.Empty(t, folder.PaperIDs)
	})

	t.Run("addPaper/removePaper on likes delegates to like/unlike (rule 5)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-5"})
		require.NoError(t, err)

		require.NoError(t, s.AddPaperToFolder(ctx, u.ID, models.LikesFolderID, "W1"))
		liked, _, err := s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"W1"}, liked)

		require.NoError(t, s.RemovePaperFromFolder(ctx, u.ID, models.LikesFolderID, "W1"))
		liked, _, err = s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, liked)
	})

	t.Run("likes folder cannot be deleted (rule 6)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-6"})
		require.NoError(t, err)

		err = s.DeleteFolder(ctx, u.ID, models.LikesFolderID)
		assert.ErrorIs(t, err, ErrProtectedFolder)
	})

	t.Run("likes folder exists immediately after EnsureUser (property 3)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-7"})
		require.NoError(t, err)

		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		assert.Equal(t, models.LikesFolderID, folder.ID)
	})

	t.Run("liked set equals likes folder contents (property 2)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-8"})
		require.NoError(t, err)

		require.NoError(t, s.Like(ctx, u.ID, "W1"))
		require.NoError(t, s.Like(ctx, u.ID, "W2"))
		require.NoError(t, s.Dislike(ctx, u.ID, "W1"))

		liked, _, err := s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		assert.ElementsMatch(t, liked, folder.PaperIDs)
	})

	t.Run("addPaper is idempotent and preserves first position (property 4)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-9"})
		require.NoError(t, err)

		folder, err := s.CreateFolder(ctx, u.ID, "reading list", "")
		require.NoError(t, err)

		require.NoError(t, s.AddPaperToFolder(ctx, u.ID, folder.ID, "W1"))
		require.NoError(t, s.AddPaperToFolder(ctx, u.ID, folder.ID, "W2"))
		require.NoError(t, s.AddPaperToFolder(ctx, u.ID, folder.ID, "W1"))

		got, err := s.GetFolder(ctx, u.ID, folder.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"W1", "W2"}, got.PaperIDs)
	})

	t.Run("follows are unique, a repeat is a no-op returning the existing edge (property 7)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-10"})
		require.NoError(t, err)

		f := models.Follow{EntityType: models.EntityTypeAuthor, EntityID: "A1", EntityName: "Ada Lovelace"}
		first, existed, err := s.Follow(ctx, u.ID, f)
		require.NoError(t, err)
		assert.False(t, existed)

		second, existed, err := s.Follow(ctx, u.ID, models.Follow{EntityType: models.EntityTypeAuthor, EntityID: "A1", EntityName: "renamed"})
		require.NoError(t, err)
		assert.True(t, existed)
		assert.Equal(t, first.EntityName, second.EntityName)

		follows, err := s.ListFollows(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, follows, 1)
	})

	t.Run("concurrent likes are idempotent under contention (property 10)", func(t *testing.T) {
		s := newStore()
		u, err := s.EnsureUser(ctx, models.User{Subject: "sub-11"})
		require.NoError(t, err)

		const n = 5
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_ = s.Like(ctx, u.ID, "W1")
			}()
		}
		wg.Wait()

		liked, _, err := s.GetFeedback(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"W1"}, liked)

		folder, err := s.GetFolder(ctx, u.ID, models.LikesFolderID)
		require.NoError(t, err)
		assert.Equal(t, []string{"W1"}, folder.PaperIDs)
	})
}
