package userstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scifind-backend/internal/models"
)

// maxOptimisticRetries bounds the retry loop GormStore runs against the Version
// column before giving up with ErrStoreConflict, per spec.md §5's "bounded retry,
// then surface a conflict" contract.
const maxOptimisticRetries = 3

// GormStore is the durable Store backend. Per-user mutations are applied with an
// optimistic version check: each write reads the current row, mutates an in-memory
// copy, then updates conditioned on the version it read, retrying on a lost race.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormStore constructs a GormStore over an already-migrated *gorm.DB.
func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

func randomID(prefix string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(buf), nil
}

func (s *GormStore) EnsureUser(ctx context.Context, u models.User) (*models.User, error) {
	var out models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("subject = ?", u.Subject).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			id, genErr := randomID("u_")
			if genErr != nil {
				return genErr
			}
			now := time.Now()
			u.ID = id
			u.CreatedAt = now
			u.UpdatedAt = now
			u.LastLoginAt = now
			u.Version = 0
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			likes := newLikesFolder()
			likes.UserID = u.ID
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes).Error; err != nil {
				return err
			}
			out = u
			return nil
		case err != nil:
			return err
		default:
			existing.LastLoginAt = time.Now()
			if u.Email != "" {
				existing.Email = u.Email
			}
			if u.Name != "" {
				existing.Name = u.Name
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = existing
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) PutProfile(ctx context.Context, userID string, topics, authors []string) error {
	p := models.Profile{
		UserID:    userID,
		Topics:    topics,
		Authors:   authors,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&p).Error
}

func (s *GormStore) ClearProfile(ctx context.Context, userID string) error {
	return s.PutProfile(ctx, userID, nil, nil)
}

func (s *GormStore) GetFeedback(ctx context.Context, userID string) ([]string, []string, error) {
	var records []models.FeedbackRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, nil, err
	}
	var liked, disliked []string
	for _, r := range records {
		switch r.Kind {
		case "liked":
			liked = append(liked, r.PaperID)
		case "disliked":
			disliked = append(disliked, r.PaperID)
		}
	}
	return liked, disliked, nil
}


func (s *GormStore) recordFeedback(ctx context.Context, userID, paperID, kind string) error {
	r := models.FeedbackRecord{UserID: userID, PaperID: paperID, Kind: kind, CreatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "paper_id"}},
		UpdateAll: true,
	}).Create(&r).Error
}

func (s *GormStore) deleteFeedback(ctx context.Context, userID, paperID, kind string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND paper_id = ? AND kind = ?", userID, paperID, kind).
		Delete(&models.FeedbackRecord{}).Error
}

func (s *GormStore) Like(ctx context.Context, userID, paperID string) error {
	if err := s.deleteFeedback(ctx, userID, paperID, "disliked"); err != nil {
		return err
	}
	if err := s.recordFeedback(ctx, userID, paperID, "liked"); err != nil {
		return err
	}
	return s.withFolder(ctx, userID, models.LikesFolderID, true, func(f *models.Folder) { f.PrependPaper(paperID) })
}

func (s *GormStore) Dislike(ctx context.Context, userID, paperID string) error {
	if err := s.deleteFeedback(ctx, userID, paperID, "liked"); err != nil {
		return err
	}
	if err := s.recordFeedback(ctx, userID, paperID, "disliked"); err != nil {
		return err
	}
	return s.withFolder(ctx, userID, models.LikesFolderID, true, func(f *models.Folder) { f.RemovePaper(paperID) })
}

func (s *GormStore) Unlike(ctx context.Context, userID, paperID string) error {
	if err := s.deleteFeedback(ctx, userID, paperID, "liked"); err != nil {
		return err
	}
	return s.withFolder(ctx, userID, models.LikesFolderID, true, func(f *models.Folder) { f.RemovePaper(paperID) })
}

func (s *GormStore) Undislike(ctx context.Context, userID, paperID string) error {
	return s.deleteFeedback(ctx, userID, paperID, "disliked")
}

func (s *GormStore) ClearFeedback(ctx context.Context, userID string, which FeedbackKind) error {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if which != FeedbackAll {
		q = q.Where("kind = ?", string(which))
	}
	if err := q.Delete(&models.FeedbackRecord{}).Error; err != nil {
		return err
	}
	if which == FeedbackLiked || which == FeedbackAll {
		return s.withFolder(ctx, userID, models.LikesFolderID, true, func(f *models.Folder) { f.PaperIDs = []string{} })
	}
	return nil
}

func (s *GormStore) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *GormStore) GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	var f models.Folder
	err := s.db.WithContext(ctx).First(&f, "user_id = ? AND id = ?", userID, folderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) CreateFolder(ctx context.Context, userID, name, description string) (*models.Folder, error) {
	id, err := randomID("f_")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	f := models.Folder{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: description,
		PaperIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) DeleteFolder(ctx context.Context, userID, folderID string) error {
	if folderID == models.LikesFolderID {
		return ErrProtectedFolder
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, folderID).Delete(&models.Folder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AddPaperToFolder(ctx context.Context, userID, folderID, paperID string) error {
	if folderID == models.LikesFolderID {
		return s.Like(ctx, userID, paperID)
	}
	return s.withFolder(ctx, userID, folderID, false, func(f *models.Folder) { f.AddPaper(paperID) })
}

func (s *GormStore) RemovePaperFromFolder(ctx context.Context, userID, folderID, paperID string) error {
	if folderID == models.LikesFolderID {
		return s.Unlike(ctx, userID, paperID)
	}
	return s.withFolder(ctx, userID, folderID, false, func(f *models.Folder) { f.RemovePaper(paperID) })
}

// withFolder runs fn against the current folder row under an optimistic version
// check: the version read before fn runs is used as the WHERE condition on write, and
// RowsAffected (not just res.Error) drives the retry loop on a lost race, per
// spec.md §11.3. When createIfMissing is set (the "likes" folder, which always
// exists conceptually but may not have a row yet) a missing folder is created rather
// than treated as ErrNotFound; a lost create race falls through to the update path
// on the next attempt.
func (s *GormStore) withFolder(ctx context.Context, userID, folderID string, createIfMissing bool, fn func(f *models.Folder)) error {
	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		var f models.Folder
		err := s.db.WithContext(ctx).First(&f, "user_id = ? AND id = ?", userID, folderID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !createIfMissing {
				return ErrNotFound
			}
			nf := newLikesFolder()
			nf.UserID = userID
			fn(&nf)
			nf.Version = 1
			nf.UpdatedAt = time.Now()
			createRes := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&nf)
			if createRes.Error != nil {
				return createRes.Error
			}
			if createRes.RowsAffected == 1 {
				return nil
			}
			s.logger.Warn("likes folder creation race, retrying", "user_id", userID, "attempt", attempt)
			continue
		case err != nil:
			return err
		}

		oldVersion := f.Version
		fn(&f)
		f.Version = oldVersion + 1
		f.UpdatedAt = time.Now()

		res := s.db.WithContext(ctx).Model(&models.Folder{}).
			Where("user_id = ? AND id = ? AND version = ?", userID, folderID, oldVersion).
			Save(&f)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		s.logger.Warn("folder write conflict, retrying", "user_id", userID, "folder_id", folderID, "attempt", attempt)
	}
	return ErrStoreConflict
}

func (s *GormStore) ListFollows(ctx context.Context, userID string) ([]models.Follow, error) {
	var follows []models.Follow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&follows).Error; err != nil {
		return nil, err
	}
	return follows, nil
}

func (s *GormStore) Follow(ctx context.Context, userID string, f models.Follow) (models.Follow, bool, error) {
	var existing models.Follow
	err := s.db.WithContext(ctx).First(&existing, "user_id = ? AND entity_type = ? AND entity_id = ?",
		userID, f.EntityType, f.EntityID).Error
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Follow{}, false, err
	}

	f.UserID = userID
	f.FollowedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return models.Follow{}, false, err
	}
	return f, false, nil
}

func (s *GormStore) Unfollow(ctx context.Context, userID, entityType, entityID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ?", userID, entityType, entityID).
		Delete(&models.Follow{}).Error
}
