package model

import (
	"time"

	"github.com/google/uuid"
)

// Decision enum constants
const (
	DecisionPending  = "PENDING"
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Approval is one executive review round for one request. Rounds number
// 1, 2, 3… per request and are never reused. Once a round is decided or
// invalidated it is immutable.
//
// Two constraints back the invariants (created in database.NewConnection):
// a unique index on (request_id, approval_round) and a partial unique index
// on (request_id) where decision='PENDING' and is_valid, so at most one
// active round exists per request even under concurrent transitions.
type Approval struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID          uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	RequestID      uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Request        *Request  `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	RequestVersion int       `gorm:"not null" json:"request_version"` // version under review
	ApprovalRound  int       `gorm:"not null" json:"approval_round"`

	Decision           string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"decision"`
	IsValid            bool       `gorm:"not null;default:true" json:"is_valid"`
	InvalidationReason *string    `gorm:"type:text" json:"invalidation_reason,omitempty"`
	InvalidatedAt      *time.Time `json:"invalidated_at,omitempty"`

	DecisionNotes *string    `gorm:"type:text" json:"decision_notes,omitempty"`
	DecidedBy     *uuid.UUID `gorm:"type:uuid" json:"decided_by,omitempty"`
	Decider       *User      `gorm:"foreignKey:DecidedBy" json:"decider,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`

	// Snapshot of the request content at round open, kept verbatim so the
	// reviewer always sees what was submitted even after later edits.
	Snapshot string `gorm:"type:jsonb;not null" json:"snapshot"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether this round is still awaiting a decision.
func (a *Approval) Active() bool {
	return a.Decision == DecisionPending && a.IsValid
}
