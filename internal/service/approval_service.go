package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies the authenticated caller of a state-changing operation.
type Actor struct {
	ID   uuid.UUID
	Role workflow.Role
}

// ResubmitCheck is the outcome of a resubmission gate check.
type ResubmitCheck struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	NextRound int    `json:"next_round,omitempty"`
}

// ApprovalService owns the approval round lifecycle: opening rounds,
// invalidating them and gating resubmission. It never touches request
// status — the lifecycle service composes the two.
type ApprovalService interface {
	// OpenRound creates round `round` for the request at its current
	// version, pending and valid. The caller guarantees no other active
	// round exists; the partial unique index backstops that guarantee.
	OpenRound(ctx context.Context, req *model.Request, round int) (*model.Approval, error)
	// Invalidate marks the round permanently inactive. Calling it on an
	// already invalid or decided round is a no-op.
	Invalidate(ctx context.Context, orgID, approvalID uuid.UUID, reason string) error
	// Decide records a terminal decision on a pending, valid round. The
	// write is final: a decided round can never be decided again.
	Decide(ctx context.Context, orgID, approvalID uuid.UUID, decision string, notes string, actor Actor) (*model.Approval, error)
	CanResubmit(ctx context.Context, req *model.Request) (ResubmitCheck, error)
	GetApproval(ctx context.Context, orgID, id uuid.UUID) (*model.Approval, error)
	ListApprovals(ctx context.Context, orgID uuid.UUID, decision string, page, limit int) ([]model.Approval, int64, error)
	ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Approval, error)
}

type approvalService struct {
	approvals repository.ApprovalRepository
	audit     AuditService
	now       func() time.Time
}

func NewApprovalService(approvals repository.ApprovalRepository, audit AuditService) ApprovalService {
	return &approvalService{approvals: approvals, audit: audit, now: time.Now}
}

func (s *approvalService) OpenRound(ctx context.Context, req *model.Request, round int) (*model.Approval, error) {
	snapshot, err := snapshotContent(req)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot request content: %w", err)
	}

	approval := &model.Approval{
		OrgID:          req.OrgID,
		RequestID:      req.ID,
		RequestVersion: req.RequestVersion,
		ApprovalRound:  round,
		Decision:       model.DecisionPending,
		IsValid:        true,
		Snapshot:       snapshot,
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to open approval round %d: %w", round, err)
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      req.OrgID,
		EntityType: model.EntityApproval,
		EntityID:   approval.ID,
		Action:     model.ActionOpenRound,
		ActorRole:  "system",
		Details: map[string]interface{}{
			"request_id":      req.ID.String(),
			"request_version": req.RequestVersion,
			"round":           round,
		},
	})

	return approval, nil
}

func (s *approvalService) Invalidate(ctx context.Context, orgID, approvalID uuid.UUID, reason string) error {
	updated, err := s.approvals.Invalidate(ctx, orgID, approvalID, reason, s.now())
	if err != nil {
		return fmt.Errorf("failed to invalidate approval: %w", err)
	}
	if !updated {
		// Already invalid or already decided — idempotent no-op.
		return nil
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityApproval,
		EntityID:   approvalID,
		Action:     model.ActionInvalidateRound,
		ActorRole:  "system",
		Details:    map[string]interface{}{"reason": reason},
	})
	return nil
}

func (s *approvalService) Decide(ctx context.Context, orgID, approvalID uuid.UUID, decision string, notes string, actor Actor) (*model.Approval, error) {
	if decision != model.DecisionApproved && decision != model.DecisionRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}
	if actor.Role != workflow.RoleCEO && actor.Role != workflow.RoleAdmin {
		return nil, &workflow.ForbiddenError{
			Target:   workflow.Status(decision),
			Actor:    actor.Role,
			Required: []workflow.Role{workflow.RoleCEO, workflow.RoleAdmin},
		}
	}

	approval, err := s.approvals.GetByID(ctx, orgID, approvalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval.Decision != model.DecisionPending {
		return nil, workflow.ErrAlreadyDecided
	}
	if !approval.IsValid {
		return nil, workflow.ErrInvalidated
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	updated, err := s.approvals.Decide(ctx, orgID, approvalID, decision, notesPtr, actor.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}
	if !updated {
		// Lost the race: someone decided or invalidated between our read
		// and the compare-and-swap. Re-read to report the right outcome.
		current, readErr := s.approvals.GetByID(ctx, orgID, approvalID)
		if readErr == nil && !current.IsValid {
			return nil, workflow.ErrInvalidated
		}
		return nil, workflow.ErrAlreadyDecided
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityApproval,
		EntityID:   approvalID,
		Action:     model.ActionDecideApproval,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details: map[string]interface{}{
			"request_id": approval.RequestID.String(),
			"round":      approval.ApprovalRound,
			"decision":   decision,
			"notes":      notes,
		},
	})

	return s.approvals.GetByID(ctx, orgID, approvalID)
}

func (s *approvalService) CanResubmit(ctx context.Context, req *model.Request) (ResubmitCheck, error) {
	if req.Status != workflow.StatusRejected {
		return ResubmitCheck{
			Allowed: false,
			Reason:  fmt.Sprintf("request is %s, only REJECTED requests can be resubmitted", req.Status),
		}, nil
	}

	// Defensive double-check: normal flow already guarantees no round is
	// pending once a request is REJECTED.
	pending, err := s.approvals.HasPending(ctx, req.OrgID, req.ID)
	if err != nil {
		return ResubmitCheck{}, fmt.Errorf("failed to check pending approvals: %w", err)
	}
	if pending {
		return ResubmitCheck{Allowed: false, Reason: "an approval round is still pending"}, nil
	}

	maxRound, err := s.approvals.MaxRound(ctx, req.OrgID, req.ID)
	if err != nil {
		return ResubmitCheck{}, fmt.Errorf("failed to determine next round: %w", err)
	}

	return ResubmitCheck{Allowed: true, NextRound: maxRound + 1}, nil
}

func (s *approvalService) GetApproval(ctx context.Context, orgID, id uuid.UUID) (*model.Approval, error) {
	approval, err := s.approvals.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, err
	}
	return approval, nil
}

func (s *approvalService) ListApprovals(ctx context.Context, orgID uuid.UUID, decision string, page, limit int) ([]model.Approval, int64, error) {
	return s.approvals.List(ctx, orgID, decision, page, limit)
}

func (s *approvalService) ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Approval, error) {
	return s.approvals.ListByRequest(ctx, orgID, requestID)
}

// snapshotContent freezes the request content the reviewer will see for
// this round, regardless of later edits.
func snapshotContent(req *model.Request) (string, error) {
	values := req.ContentValues()
	values["request_version"] = req.RequestVersion
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
