package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a request's discussion thread. Messages never
// trigger approval invalidation — they are not part of the request content.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
