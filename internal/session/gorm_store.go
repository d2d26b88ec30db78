package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// sessionRow is the gorm row shape backing GormStore. It lives in this package
// rather than internal/models because a session is infrastructure, not a domain
// entity the rest of the system references.
type sessionRow struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	UserID         string    `gorm:"type:varchar(64);index"`
	Email          string    `gorm:"type:varchar(255)"`
	Name           string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	ExpiresAt      time.Time `gorm:"index"`
	LastAccessedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

func toRow(s *Session) sessionRow {
	return sessionRow{
		ID:             s.ID,
		UserID:         s.UserID,
		Email:          s.Email,
		Name:           s.Name,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		LastAccessedAt: s.LastAccessedAt,
	}
}

func fromRow(r sessionRow) *Session {
	return &Session{
		ID:             r.ID,
		UserID:         r.UserID,
		Email:          r.Email,
		Name:           r.Name,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		LastAccessedAt: r.LastAccessedAt,
	}
}

// GormStore is the durable Store backend.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore over an already-migrated *gorm.DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, sess *Session) error {
	row := toRow(sess)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess := fromRow(row)
	if sess.IsExpired() {
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *GormStore) Touch(ctx context.Context, id string, newExpiry time.Time) error {
	res := s.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_accessed_at": time.Now(), "expires_at": newExpiry})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRow{}).Error
}

func (s *GormStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&sessionRow{})
	return int(res.RowsAffected), res.Error
}

func (s *GormStore) CleanupExpired(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&sessionRow{})
	return int(res.RowsAffected), res.Error
}
