package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRequestDTO struct {
	Title         string  `json:"title" binding:"required"`
	Description   *string `json:"description"`
	PriorityCode  string  `json:"priority_code" binding:"required,oneof=P1 P2 P3 P4 P5"`
	Category      *string `json:"category"`
	EstimatedCost string  `json:"estimated_cost"`
}

type DeleteRequestDTO struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestService covers the plain CRUD side of requests. Status changes and
// content edits live on the lifecycle service.
type RequestService interface {
	CreateRequest(ctx context.Context, orgID uuid.UUID, req CreateRequestDTO, actor Actor) (*model.Request, error)
	GetRequest(ctx context.Context, orgID, id uuid.UUID) (*model.Request, error)
	ListRequests(ctx context.Context, orgID uuid.UUID, filter repository.RequestFilter, actor Actor) ([]model.Request, int64, error)
	DeleteRequest(ctx context.Context, orgID, id uuid.UUID, reason string, actor Actor) error
}

type requestService struct {
	requests repository.RequestRepository
	audit    AuditService
	now      func() time.Time
}

func NewRequestService(requests repository.RequestRepository, audit AuditService) RequestService {
	return &requestService{requests: requests, audit: audit, now: time.Now}
}

func (s *requestService) CreateRequest(ctx context.Context, orgID uuid.UUID, dto CreateRequestDTO, actor Actor) (*model.Request, error) {
	if !model.ValidPriority(dto.PriorityCode) {
		return nil, fmt.Errorf("priority_code must be one of P1..P5")
	}

	cost := decimal.Zero
	if dto.EstimatedCost != "" {
		parsed, err := decimal.NewFromString(dto.EstimatedCost)
		if err != nil {
			return nil, fmt.Errorf("invalid estimated_cost: %w", err)
		}
		cost = parsed
	}

	now := s.now()
	req := &model.Request{
		OrgID:           orgID,
		Title:           dto.Title,
		Description:     dto.Description,
		PriorityCode:    dto.PriorityCode,
		Category:        dto.Category,
		EstimatedCost:   cost,
		Status:          workflow.StatusDraft,
		RequestVersion:  1,
		RequestedBy:     actor.ID,
		StatusChangedAt: now,
		LastActivityAt:  now,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest,
		EntityID:   req.ID,
		Action:     model.ActionCreateRequest,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"title": dto.Title, "priority_code": dto.PriorityCode},
	})

	return req, nil
}

// GetRequest returns the request even when soft-deleted: deleted requests
// leave listings but remain addressable.
func (s *requestService) GetRequest(ctx context.Context, orgID, id uuid.UUID) (*model.Request, error) {
	req, err := s.requests.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *requestService) ListRequests(ctx context.Context, orgID uuid.UUID, filter repository.RequestFilter, actor Actor) ([]model.Request, int64, error) {
	// Seeing deleted requests is an admin affordance.
	if filter.IncludeDeleted && actor.Role != workflow.RoleAdmin {
		filter.IncludeDeleted = false
	}
	return s.requests.List(ctx, orgID, filter)
}

func (s *requestService) DeleteRequest(ctx context.Context, orgID, id uuid.UUID, reason string, actor Actor) error {
	req, err := s.GetRequest(ctx, orgID, id)
	if err != nil {
		return err
	}
	// Only the requester or an admin may delete.
	if actor.Role != workflow.RoleAdmin && req.RequestedBy != actor.ID {
		return workflow.ErrForbidden
	}

	if err := s.requests.SoftDelete(ctx, orgID, id, reason); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest,
		EntityID:   id,
		Action:     model.ActionDeleteRequest,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"reason": reason},
	})

	return nil
}
