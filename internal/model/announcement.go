package model

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is an org-wide banner shown to every member. Active
// announcements are the ones inside their publish window with IsActive set;
// the banner endpoint caches that list in redis.
type Announcement struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	Pinned    bool       `gorm:"not null;default:false" json:"pinned"`
	IsActive  bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	Author    *User      `gorm:"foreignKey:CreatedBy" json:"author,omitempty"`
	PublishAt *time.Time `json:"publish_at,omitempty"` // nil = immediately
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil = never
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
