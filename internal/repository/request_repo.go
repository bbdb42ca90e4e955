package repository

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List results. Zero values mean "no filter".
type RequestFilter struct {
	Status         string
	PriorityCode   string
	RequestedBy    *uuid.UUID
	IncludeDeleted bool
	Page           int
	Limit          int
}

// RequestRepository is the org-scoped data access layer for requests. Every
// method takes the caller's orgID; rows from other organizations are
// invisible to it.
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, orgID uuid.UUID, filter RequestFilter) ([]model.Request, int64, error)
	// UpdateStatus persists status plus the lifecycle timestamps. Not
	// guarded by the version column: status transitions and content edits
	// are orthogonal operations.
	UpdateStatus(ctx context.Context, req *model.Request) error
	// UpdateContent persists the content fields and the bumped version,
	// guarded by expectedVersion. Returns false without error when the
	// stored version has advanced since the caller read it.
	UpdateContent(ctx context.Context, req *model.Request, expectedVersion int) (bool, error)
	SoftDelete(ctx context.Context, orgID, id uuid.UUID, reason string) error
	TouchActivity(ctx context.Context, orgID, id uuid.UUID, at time.Time) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, orgID uuid.UUID, filter RequestFilter) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Request{}).Where("org_id = ?", orgID)
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PriorityCode != "" {
		query = query.Where("priority_code = ?", filter.PriorityCode)
	}
	if filter.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filter.RequestedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := pagination.OffsetFor(filter.Page, filter.Limit)

	if err := query.
		Preload("Requester").
		Order("last_activity_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND org_id = ?", req.ID, req.OrgID).
		Updates(map[string]interface{}{
			"status":            req.Status,
			"status_changed_at": req.StatusChangedAt,
			"submitted_at":      req.SubmittedAt,
			"approved_at":       req.ApprovedAt,
			"closed_at":         req.ClosedAt,
			"last_activity_at":  req.LastActivityAt,
		}).Error
}

func (r *requestRepository) UpdateContent(ctx context.Context, req *model.Request, expectedVersion int) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND org_id = ? AND request_version = ?", req.ID, req.OrgID, expectedVersion).
		Updates(map[string]interface{}{
			"title":            req.Title,
			"description":      req.Description,
			"priority_code":    req.PriorityCode,
			"category":         req.Category,
			"estimated_cost":   req.EstimatedCost,
			"request_version":  req.RequestVersion,
			"last_activity_at": req.LastActivityAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *requestRepository) SoftDelete(ctx context.Context, orgID, id uuid.UUID, reason string) error {
	return GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Updates(map[string]interface{}{
			"is_deleted":      true,
			"deletion_reason": reason,
		}).Error
}

func (r *requestRepository) TouchActivity(ctx context.Context, orgID, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("last_activity_at", at).Error
}
