package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity types recorded in the audit trail
const (
	EntityRequest  = "request"
	EntityApproval = "approval"
)

const (
	ActionCreateRequest      = "CREATE_REQUEST"
	ActionUpdateRequest      = "UPDATE_REQUEST"
	ActionDeleteRequest      = "DELETE_REQUEST"
	ActionStatusChange       = "STATUS_CHANGE"
	ActionResubmitRequest    = "RESUBMIT_REQUEST"
	ActionOpenRound          = "OPEN_APPROVAL_ROUND"
	ActionInvalidateRound    = "INVALIDATE_APPROVAL"
	ActionDecideApproval     = "DECIDE_APPROVAL"
	ActionCreateAnnouncement = "CREATE_ANNOUNCEMENT"
	ActionPostMessage        = "POST_MESSAGE"
	ActionUploadAttachment   = "UPLOAD_ATTACHMENT"
)

// AuditLog tracks Who, What, and When for every state-changing action.
// Writes are fire-and-forget: a failed audit insert is logged but never
// blocks or rolls back the primary operation.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	EntityType string     `gorm:"type:varchar(20);not null;index" json:"entity_type"` // request | approval
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"entity_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for system actions
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorRole  string     `gorm:"type:varchar(20)" json:"actor_role"`
	Details    string     `gorm:"type:jsonb" json:"details"` // old/new values, reasons
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
