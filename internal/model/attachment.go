package model

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is file metadata for a request; the bytes live in object
// storage under ObjectKey. Attachments are outside the material field set,
// so uploading one never invalidates an open approval.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID       uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string    `gorm:"type:varchar(512);not null;uniqueIndex" json:"object_key"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
