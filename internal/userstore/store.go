// Package userstore implements the user store (C3): the per-user aggregate of
// Profile, Feedback, Folders and Follows, enforcing the mutual-consistency rules of
// spec.md §4.3 uniformly across its in-memory and gorm-backed implementations.
package userstore

import (
	"context"
	"time"

	"scifind-backend/internal/models"
)

// FeedbackKind selects which half of the feedback set an operation targets.
type FeedbackKind string

const (
	FeedbackLiked    FeedbackKind = "liked"
	FeedbackDisliked FeedbackKind = "disliked"
	FeedbackAll      FeedbackKind = "all"
)

// Store is C3's contract. Every paper-referencing mutation is atomic at the per-user
// granularity; implementations MUST serialize mutations for the same userID (a
// process-wide per-user lock for the in-memory backend, optimistic version checks
// retried on conflict for a document/SQL backend).
type Store interface {
	// EnsureUser upserts a user row by Subject and guarantees the protected "likes"
	// folder exists, returning the resolved User.
	EnsureUser(ctx context.Context, u models.User) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	PutProfile(ctx context.Context, userID string, topics, authors []string) error
	ClearProfile(ctx context.Context, userID string) error

	GetFeedback(ctx context.Context, userID string) (liked []string, disliked []string, err error)
	Like(ctx context.Context, userID, paperID string) error
	Dislike(ctx context.Context, userID, paperID string) error
	Unlike(ctx context.Context, userID, paperID string) error
	Undislike(ctx context.Context, userID, paperID string) error
	ClearFeedback(ctx context.Context, userID string, which FeedbackKind) error

	ListFolders(ctx context.Context, userID string) ([]models.Folder, error)
	GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)
	CreateFolder(ctx context.Context, userID, name, description string) (*models.Folder, error)
	DeleteFolder(ctx context.Context, userID, folderID string) error
	AddPaperToFolder(ctx context.Context, userID, folderID, paperID string) error
	RemovePaperFromFolder(ctx context.Context, userID, folderID, paperID string) error

	ListFollows(ctx context.Context, userID string) ([]models.Follow, error)
	// Follow is idempotent: if an identical (userID, entityType, entityID) edge
	// already exists, it is returned unchanged and existed=true.
	Follow(ctx context.Context, userID string, f models.Follow) (result models.Follow, existed bool, err error)
	Unfollow(ctx context.Context, userID, entityType, entityID string) error
}

// ErrProtectedFolder is returned when a caller tries to delete the "likes" folder.
var ErrProtectedFolder = newSentinel("cannot delete the protected \"likes\" folder")

// ErrNotFound is returned when a requested folder/follow/user does not exist.
var ErrNotFound = newSentinel("not found")

// ErrStoreConflict is returned by the gorm backend when optimistic retries are
// exhausted.
var ErrStoreConflict = newSentinel("store write conflict")

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

func newSentinel(msg string) error { return sentinelError(msg) }

func newLikesFolder() models.Folder {
	now := time.Now()
	return models.Folder{
		ID:        models.LikesFolderID,
		Name:      "Likes",
		PaperIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
