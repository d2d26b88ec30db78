package models

import (
	"time"
)

// User is the authenticated principal. It owns exactly one Profile, one Feedback set,
// one Folder set (including the protected "likes" folder) and one Follow set.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)" validate:"required"`
	Subject       string    `json:"-" gorm:"type:varchar(255);uniqueIndex;not null"`
	Email         string    `json:"email" gorm:"type:varchar(255);index" validate:"omitempty,email"`
	Name          string    `json:"name" gorm:"type:varchar(255)"`
	Picture       string    `json:"picture,omitempty" gorm:"type:varchar(2048)"`
	Version       int64     `json:"-" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	LastLoginAt   time.Time `json:"last_login_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string { return "users" }

const LikesFolderID = "likes"

// Profile holds the topics and authors a user wants to see in their "for you" feed.
type Profile struct {
	UserID    string    `json:"-" gorm:"primaryKey;type:varchar(64)"`
	Topics    []string  `json:"topics" gorm:"serializer:json"`
	Authors   []string  `json:"authors" gorm:"serializer:json"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Profile) TableName() string { return "profiles" }

// IsEmpty returns true when the profile carries no topics and no authors, which is the
// trigger for C7's empty-profile fallback.
func (p *Profile) IsEmpty() bool {
	return p == nil || (len(p.Topics) == 0 && len(p.Authors) == 0)
}

// FeedbackRecord is a single like/dislike edge from a user to a paper.
type FeedbackRecord struct {
	UserID       string    `json:"-" gorm:"primaryKey;type:varchar(64)"`
	PaperID      string    `json:"paper_id" gorm:"primaryKey;type:varchar(50)"`
	Kind         string    `json:"kind" gorm:"type:varchar(10);index" validate:"oneof=liked disliked"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (FeedbackRecord) TableName() string { return "feedback_records" }

// Folder is a named, ordered collection of paperIds owned by a user. The folder with id
// LikesFolderID always exists and is kept in sync with the user's liked feedback set.
type Folder struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	UserID      string    `json:"-" gorm:"primaryKey;type:varchar(64);index"`
	Name        string    `json:"name" gorm:"type:varchar(255)" validate:"required,min=1,max=255"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	PaperIDs    []string  `json:"paper_ids" gorm:"serializer:json"`
	Version     int64     `json:"-" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Folder) TableName() string { return "folders" }

// PaperCount returns the number of distinct papers in the folder.
func (f *Folder) PaperCount() int {
	if f == nil {
		return 0
	}
	return len(f.PaperIDs)
}

// AddPaper appends paperID to the folder if absent, preserving the first position on
// repeated calls (property 4 of spec.md §8).
func (f *Folder) AddPaper(paperID string) {
	for _, id := range f.PaperIDs {
		if id == paperID {
			return
		}
	}
	f.PaperIDs = append(f.PaperIDs, paperID)
}

// PrependPaper inserts paperID at the head of the folder if absent, a no-op if
// already present (spec.md §4.3 rule 3: like(p) inserts at the head of "likes").
func (f *Folder) PrependPaper(paperID string) {
	for _, id := range f.PaperIDs {
		if id == paperID {
			return
		}
	}
	f.PaperIDs = append([]string{paperID}, f.PaperIDs...)
}

// RemovePaper removes paperID from the folder if present.
func (f *Folder) RemovePaper(paperID string) {
	for i, id := range f.PaperIDs {
		if id == paperID {
			f.PaperIDs = append(f.PaperIDs[:i], f.PaperIDs[i+1:]...)
			return
		}
	}
}

// EntityType enumerates the kinds of entities a user can follow.
const (
	EntityTypeAuthor      = "author"
	EntityTypeInstitution = "institution"
	EntityTypeTopic       = "topic"
	EntityTypeSource      = "source"
	EntityTypeCustom      = "custom"
)

// Follow is a durable subscription from a user to an external entity (or, for
// EntityTypeCustom, a free-text query) whose latest works appear in the following feed.
type Follow struct {
	UserID     string    `json:"-" gorm:"primaryKey;type:varchar(64)"`
	EntityType string    `json:"type" gorm:"primaryKey;type:varchar(20)" validate:"required,oneof=author institution topic source custom"`
	EntityID   string    `json:"entity_id" gorm:"primaryKey;type:varchar(255)" validate:"required"`
	EntityName string    `json:"entity_name" gorm:"type:varchar(500)"`
	UpstreamID string    `json:"openalex_id,omitempty" gorm:"type:varchar(255)"`
	FollowedAt time.Time `json:"followed_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Follow) TableName() string { return "follows" }
