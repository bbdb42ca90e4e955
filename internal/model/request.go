package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backend/internal/workflow"
)

// PriorityCode enum constants — P1 is the most urgent. The codes carry
// ordering only, no numeric semantics.
const (
	PriorityP1 = "P1"
	PriorityP2 = "P2"
	PriorityP3 = "P3"
	PriorityP4 = "P4"
	PriorityP5 = "P5"
)

// PriorityLabels maps each priority code to its display label.
var PriorityLabels = map[string]string{
	PriorityP1: "Critical",
	PriorityP2: "High",
	PriorityP3: "Medium",
	PriorityP4: "Low",
	PriorityP5: "Whenever",
}

// ValidPriority reports whether code is one of the five registered codes.
func ValidPriority(code string) bool {
	_, ok := PriorityLabels[code]
	return ok
}

// Request is a unit of work awaiting an executive decision. Status moves
// through the workflow state machine; RequestVersion increments by exactly 1
// on every content edit once the request has left DRAFT.
type Request struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Description    *string         `gorm:"type:text" json:"description"`
	PriorityCode   string          `gorm:"type:varchar(5);not null;default:'P3';index" json:"priority_code"`
	Category       *string         `gorm:"type:varchar(100)" json:"category"`
	EstimatedCost  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"estimated_cost"`
	Status         workflow.Status `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	RequestVersion int             `gorm:"not null;default:1" json:"request_version"`

	RequestedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester   *User     `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`

	// Soft delete: deleted requests leave default listings but stay
	// addressable by id.
	IsDeleted      bool    `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletionReason *string `gorm:"type:text" json:"deletion_reason,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	StatusChangedAt time.Time  `json:"status_changed_at"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	LastActivityAt  time.Time  `json:"last_activity_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ContentValues returns the request's editable fields as a JSON-style value
// map, the shape the material-change detector compares against a patch.
func (r *Request) ContentValues() map[string]any {
	values := map[string]any{
		"title":          r.Title,
		"priority_code":  r.PriorityCode,
		"estimated_cost": r.EstimatedCost.String(),
	}
	if r.Description != nil {
		values["description"] = *r.Description
	} else {
		values["description"] = nil
	}
	if r.Category != nil {
		values["category"] = *r.Category
	} else {
		values["category"] = nil
	}
	return values
}
