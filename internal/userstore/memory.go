package userstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"scifind-backend/internal/models"
)

// userAggregate is the full per-user document the memory backend guards with one
// mutex per user, mirroring the per-user contention model spec.md §5 requires.
type userAggregate struct {
	mu       sync.Mutex
	user     models.User
	profile  models.Profile
	liked    map[string]bool
	disliked map[string]bool
	folders  map[string]models.Folder
	follows  map[string]models.Follow // keyed by entityType+"/"+entityID
}

// MemoryStore is the in-process Store implementation: suitable for development and
// tests, and the fallback the environment variable contract in spec.md §6 requires to
// always exist.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*userAggregate
	bySub map[string]string // subject -> userID
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*userAggregate),
		bySub: make(map[string]string),
	}
}

func generateUserID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("userstore: failed to generate a random user id: " + err.Error())
	}
	return "u_" + hex.EncodeToString(buf)
}

func (s *MemoryStore) EnsureUser(_ context.Context, u models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.bySub[u.Subject]; ok {
		agg := s.byID[id]
		agg.mu.Lock()
		agg.user.LastLoginAt = time.Now()
		if u.Email != "" {
			agg.user.Email = u.Email
		}
		if u.Name != "" {
			agg.user.Name = u.Name
		}
		out := agg.user
		agg.mu.Unlock()
		return &out, nil
	}

	now := time.Now()
	u.ID = generateUserID()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastLoginAt = now

	agg := &userAggregate{
		user:     u,
		liked:    make(map[string]bool),
		disliked: make(map[string]bool),
		folders:  map[string]models.Folder{models.LikesFolderID: newLikesFolder()},
		follows:  make(map[string]models.Follow),
	}
	s.byID[u.ID] = agg
	s.bySub[u.Subject] = u.ID
	out := agg.user
	return &out, nil
}

func (s *MemoryStore) get(userID string) (*userAggregate, error) {
	s.mu.RLock()
	agg, ok := s.byID[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return agg, nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	out := agg.user
	return &out, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	out := agg.profile
	out.Topics = append([]string(nil), agg.profile.Topics...)
	out.Authors = append([]string(nil), agg.profile.Authors...)
	return &out, nil
}

func (s *MemoryStore) PutProfile(_ context.Context, userID string, topics, authors []string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	agg.profile.UserID = userID
	agg.profile.Topics = append([]string(nil), topics...)
	agg.profile.Authors = append([]string(nil), authors...)
	agg.profile.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ClearProfile(_ context.Context, userID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	agg.profile = models.Profile{UserID: userID, UpdatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) GetFeedback(_ context.Context, userID string) ([]string, []string, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return keys(agg.liked), keys(agg.disliked), nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Like applies spec.md §4.3 rules 1 and 3: removes paperID from disliked if present,
// and inserts it at the head of the "likes" folder if absent.
func (s *MemoryStore) Like(_ context.Context, userID, paperID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	delete(agg.disliked, paperID)
	agg.liked[paperID] = true

	likes := agg.folders[models.LikesFolderID]
	likes.PrependPaper(paperID)
	likes.UpdatedAt = time.Now()
	agg.folders[models.LikesFolderID] = likes
	return nil
}

// Dislike applies spec.md §4.3 rule 2: removes paperID from liked AND from the
// "likes" folder.
func (s *MemoryStore) Dislike(_ context.Context, userID, paperID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	delete(agg.liked, paperID)
	agg.disliked[paperID] = true

	likes := agg.folders[models.LikesFolderID]
	likes.RemovePaper(paperID)
	likes.UpdatedAt = time.Now()
	agg.folders[models.LikesFolderID] = likes
	return nil
}

// Unlike applies spec.md §4.3 rule 4: removes paperID from the "likes" folder.
func (s *MemoryStore) Unlike(_ context.Context, userID, paperID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	delete(agg.liked, paperID)
	likes := agg.folders[models.LikesFolderID]
	likes.RemovePaper(paperID)
	likes.UpdatedAt = time.Now()
	agg.folders[models.LikesFolderID] = likes
	return nil
}

func (s *MemoryStore) Undislike(_ context.Context, userID, paperID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	delete(agg.disliked, paperID)
	return nil
}

func (s *MemoryStore) ClearFeedback(_ context.Context, userID string, which FeedbackKind) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	switch which {
	case FeedbackLiked, FeedbackAll:
		agg.liked = make(map[string]bool)
		likes := agg.folders[models.LikesFolderID]
		likes.PaperIDs = []string{}
		likes.UpdatedAt = time.Now()
		agg.folders[models.LikesFolderID] = likes
	}
	switch which {
	case FeedbackDisliked, FeedbackAll:
		agg.disliked = make(map[string]bool)
	}
	return nil
}

func (s *MemoryStore) ListFolders(_ context.Context, userID string) ([]models.Folder, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	out := make([]models.Folder, 0, len(agg.folders))
	for _, f := range agg.folders {
		out = append(out, f)
	}
	return out, nil
}

func (s *MemoryStore) GetFolder(_ context.Context, userID, folderID string) (*models.Folder, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	f, ok := agg.folders[folderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryStore) CreateFolder(_ context.Context, userID, name, description string) (*models.Folder, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	now := time.Now()
	f := models.Folder{
		ID:          generateUserID(), // reuse the same random-id generator, distinct namespace concern
		Name:        name,
		Description: description,
		PaperIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	agg.folders[f.ID] = f
	return &f, nil
}

func (s *MemoryStore) DeleteFolder(_ context.Context, userID, folderID string) error {
	if folderID == models.LikesFolderID {
		return ErrProtectedFolder
	}
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	if _, ok := agg.folders[folderID]; !ok {
		return ErrNotFound
	}
	delete(agg.folders, folderID)
	return nil
}

// AddPaperToFolder applies spec.md §4.3 rule 5 when folderID is the likes folder:
// adding to "likes" implies a like.
func (s *MemoryStore) AddPaperToFolder(ctx context.Context, userID, folderID, paperID string) error {
	if folderID == models.LikesFolderID {
		return s.Like(ctx, userID, paperID)
	}
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	f, ok := agg.folders[folderID]
	if !ok {
		return ErrNotFound
	}
	f.AddPaper(paperID)
	f.UpdatedAt = time.Now()
	agg.folders[folderID] = f
	return nil
}

// RemovePaperFromFolder applies spec.md §4.3 rule 5 when folderID is the likes
// folder: removing from "likes" implies an unlike.
func (s *MemoryStore) RemovePaperFromFolder(ctx context.Context, userID, folderID, paperID string) error {
	if folderID == models.LikesFolderID {
		return s.Unlike(ctx, userID, paperID)
	}
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	f, ok := agg.folders[folderID]
	if !ok {
		return ErrNotFound
	}
	f.RemovePaper(paperID)
	f.UpdatedAt = time.Now()
	agg.folders[folderID] = f
	return nil
}

func (s *MemoryStore) ListFollows(_ context.Context, userID string) ([]models.Follow, error) {
	agg, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	out := make([]models.Follow, 0, len(agg.follows))
	for _, f := range agg.follows {
		out = append(out, f)
	}
	return out, nil
}

func followKey(entityType, entityID string) string { return entityType + "/" + entityID }

func (s *MemoryStore) Follow(_ context.Context, userID string, f models.Follow) (models.Follow, bool, error) {
	agg, err := s.get(userID)
	if err != nil {
		return models.Follow{}, false, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	key := followKey(f.EntityType, f.EntityID)
	if existing, ok := agg.follows[key]; ok {
		return existing, true, nil
	}
	f.UserID = userID
	f.FollowedAt = time.Now()
	agg.follows[key] = f
	return f, false, nil
}

func (s *MemoryStore) Unfollow(_ context.Context, userID, entityType, entityID string) error {
	agg, err := s.get(userID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	delete(agg.follows, followKey(entityType, entityID))
	return nil
}
