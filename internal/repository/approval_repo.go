package repository

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRepository is the org-scoped data access layer for approval
// rounds. The compare-and-swap updates report zero rows affected as
// (false, nil) so the service layer can surface the right domain error
// instead of silently succeeding.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *model.Approval) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Approval, error)
	// FindActive returns the single pending+valid round for the request,
	// or nil if none is open.
	FindActive(ctx context.Context, orgID, requestID uuid.UUID) (*model.Approval, error)
	// MaxRound returns the highest round number ever used for the request,
	// 0 if no round exists. Rounds are never reused.
	MaxRound(ctx context.Context, orgID, requestID uuid.UUID) (int, error)
	HasPending(ctx context.Context, orgID, requestID uuid.UUID) (bool, error)
	ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Approval, error)
	List(ctx context.Context, orgID uuid.UUID, decision string, page, limit int) ([]model.Approval, int64, error)
	// Invalidate flips is_valid off iff the round is still pending and
	// valid. Returns false when the round was already terminal.
	Invalidate(ctx context.Context, orgID, id uuid.UUID, reason string, at time.Time) (bool, error)
	// Decide records a terminal decision iff the round is still pending
	// and valid. Returns false when another writer got there first.
	Decide(ctx context.Context, orgID, id uuid.UUID, decision string, notes *string, decidedBy uuid.UUID, at time.Time) (bool, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *model.Approval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

func (r *approvalRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Approval, error) {
	var approval model.Approval
	if err := GetDB(ctx, r.db).First(&approval, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindActive(ctx context.Context, orgID, requestID uuid.UUID) (*model.Approval, error) {
	var approval model.Approval
	err := GetDB(ctx, r.db).
		Where("org_id = ? AND request_id = ? AND decision = ? AND is_valid = ?",
			orgID, requestID, model.DecisionPending, true).
		First(&approval).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) MaxRound(ctx context.Context, orgID, requestID uuid.UUID) (int, error) {
	var maxRound int
	err := GetDB(ctx, r.db).Model(&model.Approval{}).
		Where("org_id = ? AND request_id = ?", orgID, requestID).
		Select("COALESCE(MAX(approval_round), 0)").
		Scan(&maxRound).Error
	return maxRound, err
}

func (r *approvalRepository) HasPending(ctx context.Context, orgID, requestID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Approval{}).
		Where("org_id = ? AND request_id = ? AND decision = ? AND is_valid = ?", orgID, requestID, model.DecisionPending, true).
		Count(&count).Error
	return count > 0, err
}

func (r *approvalRepository) ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	err := GetDB(ctx, r.db).
		Preload("Decider").
		Where("org_id = ? AND request_id = ?", orgID, requestID).
		Order("approval_round DESC").
		Find(&approvals).Error
	return approvals, err
}

func (r *approvalRepository) List(ctx context.Context, orgID uuid.UUID, decision string, page, limit int) ([]model.Approval, int64, error) {
	var approvals []model.Approval
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Approval{}).Where("org_id = ?", orgID)
	if decision != "" {
		query = query.Where("decision = ?", decision)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.OffsetFor(page, limit)
	if err := query.
		Preload("Request").
		Preload("Decider").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&approvals).Error; err != nil {
		return nil, 0, err
	}

	return approvals, total, nil
}

func (r *approvalRepository) Invalidate(ctx context.Context, orgID, id uuid.UUID, reason string, at time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Approval{}).
		Where("id = ? AND org_id = ? AND decision = ? AND is_valid = ?",
			id, orgID, model.DecisionPending, true).
		Updates(map[string]interface{}{
			"is_valid":            false,
			"invalidation_reason": reason,
			"invalidated_at":      at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *approvalRepository) Decide(ctx context.Context, orgID, id uuid.UUID, decision string, notes *string, decidedBy uuid.UUID, at time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Approval{}).
		Where("id = ? AND org_id = ? AND decision = ? AND is_valid = ?",
			id, orgID, model.DecisionPending, true).
		Updates(map[string]interface{}{
			"decision":       decision,
			"decision_notes": notes,
			"decided_by":     decidedBy,
			"decided_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
