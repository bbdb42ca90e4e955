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
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InvalidationReasonMaterialEdit is recorded on rounds killed by an edit to
// a material field while review was still open.
const InvalidationReasonMaterialEdit = "material edit"

// EventPublisher fans state changes out to connected clients. Publish must
// never block the caller.
type EventPublisher interface {
	Publish(event string, payload map[string]interface{})
}

// TransitionResult is the outcome of a successful status transition.
// Warning carries a non-fatal side effect failure (already logged): the
// status change is authoritative even when opening the approval round
// behind it failed.
type TransitionResult struct {
	Request  *model.Request  `json:"request"`
	Approval *model.Approval `json:"approval,omitempty"`
	Warning  string          `json:"warning,omitempty"`
}

// EditResult is the outcome of a content edit.
type EditResult struct {
	Request       *model.Request `json:"request"`
	Invalidated   bool           `json:"invalidated"`
	Material      bool           `json:"material"`
	ChangedFields []string       `json:"changed_fields"`
}

// DecideResult pairs the decided round with the re-routed request.
type DecideResult struct {
	Approval *model.Approval `json:"approval"`
	Request  *model.Request  `json:"request,omitempty"`
	Warning  string          `json:"warning,omitempty"`
}

// LifecycleService orchestrates status transitions and content edits for
// requests, enforcing the workflow state machine and sequencing the
// approval-round side effects.
type LifecycleService interface {
	Transition(ctx context.Context, orgID, requestID uuid.UUID, target workflow.Status, actor Actor) (*TransitionResult, error)
	ApplyContentEdit(ctx context.Context, orgID, requestID uuid.UUID, patch map[string]interface{}, expectedVersion int, actor Actor) (*EditResult, error)
	Resubmit(ctx context.Context, orgID, requestID uuid.UUID, actor Actor) (*TransitionResult, error)
	// Decide records the decision on an approval round and routes the
	// request into the matching terminal review state.
	Decide(ctx context.Context, orgID, approvalID uuid.UUID, decision string, notes string, actor Actor) (*DecideResult, error)
}

type lifecycleService struct {
	requests  repository.RequestRepository
	approvals repository.ApprovalRepository
	rounds    ApprovalService
	audit     AuditService
	txManager repository.TransactionManager
	events    EventPublisher
	now       func() time.Time
}

func NewLifecycleService(
	requests repository.RequestRepository,
	approvals repository.ApprovalRepository,
	rounds ApprovalService,
	audit AuditService,
	txManager repository.TransactionManager,
	events EventPublisher,
) LifecycleService {
	return &lifecycleService{
		requests:  requests,
		approvals: approvals,
		rounds:    rounds,
		audit:     audit,
		txManager: txManager,
		events:    events,
		now:       time.Now,
	}
}

func (s *lifecycleService) Transition(ctx context.Context, orgID, requestID uuid.UUID, target workflow.Status, actor Actor) (*TransitionResult, error) {
	req, err := s.loadRequest(ctx, orgID, requestID)
	if err != nil {
		return nil, err
	}
	if !workflow.ValidStatus(target) {
		return nil, &workflow.TransitionError{From: req.Status, To: target}
	}
	if !workflow.RoleAllowed(target, actor.Role) {
		return nil, &workflow.ForbiddenError{
			Target:   target,
			Actor:    actor.Role,
			Required: workflow.RequiredRoles(target),
		}
	}

	return s.applyTransition(ctx, req, target, &actor, false)
}

func (s *lifecycleService) Resubmit(ctx context.Context, orgID, requestID uuid.UUID, actor Actor) (*TransitionResult, error) {
	req, err := s.loadRequest(ctx, orgID, requestID)
	if err != nil {
		return nil, err
	}

	check, err := s.rounds.CanResubmit(ctx, req)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &workflow.ResubmitError{Reason: check.Reason}
	}

	result, err := s.applyTransition(ctx, req, workflow.StatusSubmitted, &actor, true)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest,
		EntityID:   requestID,
		Action:     model.ActionResubmitRequest,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"next_round": check.NextRound},
	})

	return result, nil
}

// applyTransition performs a transition that has already passed the role
// gate. A nil actor marks a system-driven re-route.
func (s *lifecycleService) applyTransition(ctx context.Context, req *model.Request, target workflow.Status, actor *Actor, viaResubmit bool) (*TransitionResult, error) {
	from := req.Status
	if !workflow.CanTransition(from, target) {
		return nil, &workflow.TransitionError{From: from, To: target}
	}
	if from == workflow.StatusRejected && target == workflow.StatusSubmitted && !viaResubmit && actor != nil {
		// Direct REJECTED->SUBMITTED goes through the resubmission gate.
		check, err := s.rounds.CanResubmit(ctx, req)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			return nil, &workflow.ResubmitError{Reason: check.Reason}
		}
	}

	now := s.now()
	req.Status = target
	req.StatusChangedAt = now
	req.LastActivityAt = now
	switch target {
	case workflow.StatusSubmitted:
		req.SubmittedAt = &now
	case workflow.StatusApproved:
		req.ApprovedAt = &now
	case workflow.StatusClosed:
		req.ClosedAt = &now
	}

	if err := s.requests.UpdateStatus(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist status change: %w", err)
	}

	actorID, actorRole := actorFields(actor)
	s.audit.Record(ctx, AuditEntry{
		OrgID:      req.OrgID,
		EntityType: model.EntityRequest,
		EntityID:   req.ID,
		Action:     model.ActionStatusChange,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Details: map[string]interface{}{
			"old_status": string(from),
			"new_status": string(target),
		},
	})

	result := &TransitionResult{Request: req}

	// Entering review opens the next approval round at the request's
	// current version. The status change above is authoritative: a failed
	// round insert is logged and surfaced as a warning, never rolled back.
	if target == workflow.StatusInReview {
		maxRound, err := s.approvals.MaxRound(ctx, req.OrgID, req.ID)
		if err == nil {
			var approval *model.Approval
			approval, err = s.rounds.OpenRound(ctx, req, maxRound+1)
			result.Approval = approval
		}
		if err != nil {
			logrus.WithError(err).WithField("request_id", req.ID).
				Error("status changed to IN_REVIEW but opening the approval round failed")
			result.Warning = "approval round could not be opened; the request is in review without an open round"
		}
	}

	s.publish("request.status_changed", map[string]interface{}{
		"request_id": req.ID.String(),
		"org_id":     req.OrgID.String(),
		"old_status": string(from),
		"new_status": string(target),
	})

	return result, nil
}

func (s *lifecycleService) ApplyContentEdit(ctx context.Context, orgID, requestID uuid.UUID, patch map[string]interface{}, expectedVersion int, actor Actor) (*EditResult, error) {
	req, err := s.loadRequest(ctx, orgID, requestID)
	if err != nil {
		return nil, err
	}

	oldValues := req.ContentValues()
	changed := workflow.ChangedFields(oldValues, patch)

	if err := applyPatch(req, patch); err != nil {
		return nil, err
	}

	// Draft edits are free: no version bump, no invalidation check.
	if req.Status == workflow.StatusDraft {
		req.LastActivityAt = s.now()
		updated, err := s.requests.UpdateContent(ctx, req, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to persist edit: %w", err)
		}
		if !updated {
			return nil, workflow.ErrVersionConflict
		}
		s.auditEdit(ctx, req, actor, changed, false)
		return &EditResult{Request: req, ChangedFields: changed}, nil
	}

	material := workflow.IsMaterialChange(oldValues, patch)
	req.RequestVersion = expectedVersion + 1
	req.LastActivityAt = s.now()

	invalidated := false
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		updated, txErr := s.requests.UpdateContent(txCtx, req, expectedVersion)
		if txErr != nil {
			return fmt.Errorf("failed to persist edit: %w", txErr)
		}
		if !updated {
			return workflow.ErrVersionConflict
		}

		if !material {
			return nil
		}
		active, txErr := s.approvals.FindActive(txCtx, orgID, requestID)
		if txErr != nil {
			return fmt.Errorf("failed to look up active approval: %w", txErr)
		}
		if active == nil {
			return nil
		}
		if txErr := s.rounds.Invalidate(txCtx, orgID, active.ID, InvalidationReasonMaterialEdit); txErr != nil {
			return txErr
		}
		invalidated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditEdit(ctx, req, actor, changed, material)

	// A material edit that killed the open round re-routes the request out
	// of review so the requester can resubmit a fresh round.
	if invalidated && req.Status == workflow.StatusInReview {
		if _, routeErr := s.applyTransition(ctx, req, workflow.StatusRejected, nil, false); routeErr != nil {
			logrus.WithError(routeErr).WithField("request_id", req.ID).
				Error("failed to re-route request after approval invalidation")
		}
	}

	return &EditResult{
		Request:       req,
		Invalidated:   invalidated,
		Material:      material,
		ChangedFields: changed,
	}, nil
}

func (s *lifecycleService) Decide(ctx context.Context, orgID, approvalID uuid.UUID, decision string, notes string, actor Actor) (*DecideResult, error) {
	approval, err := s.rounds.Decide(ctx, orgID, approvalID, decision, notes, actor)
	if err != nil {
		return nil, err
	}

	result := &DecideResult{Approval: approval}

	req, err := s.loadRequest(ctx, orgID, approval.RequestID)
	if err != nil {
		logrus.WithError(err).WithField("request_id", approval.RequestID).
			Error("approval decided but request could not be loaded for routing")
		result.Warning = "decision recorded but request status was not updated"
		return result, nil
	}

	if req.Status == workflow.StatusInReview {
		target := workflow.StatusApproved
		if decision == model.DecisionRejected {
			target = workflow.StatusRejected
		}
		routed, routeErr := s.applyTransition(ctx, req, target, &actor, false)
		if routeErr != nil {
			logrus.WithError(routeErr).WithField("request_id", req.ID).
				Error("approval decided but request routing failed")
			result.Warning = "decision recorded but request status was not updated"
			return result, nil
		}
		result.Request = routed.Request
	}

	return result, nil
}

func (s *lifecycleService) loadRequest(ctx context.Context, orgID, requestID uuid.UUID) (*model.Request, error) {
	req, err := s.requests.GetByID(ctx, orgID, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req.IsDeleted {
		return nil, workflow.ErrNotFound
	}
	return req, nil
}

func (s *lifecycleService) auditEdit(ctx context.Context, req *model.Request, actor Actor, changed []string, material bool) {
	s.audit.Record(ctx, AuditEntry{
		OrgID:      req.OrgID,
		EntityType: model.EntityRequest,
		EntityID:   req.ID,
		Action:     model.ActionUpdateRequest,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details: map[string]interface{}{
			"changed_fields": changed,
			"material":       material,
			"new_version":    req.RequestVersion,
		},
	})
}

func (s *lifecycleService) publish(event string, payload map[string]interface{}) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func actorFields(actor *Actor) (*uuid.UUID, string) {
	if actor == nil {
		return nil, "system"
	}
	return &actor.ID, string(actor.Role)
}

// applyPatch copies the recognized content fields from the patch onto the
// request, validating as it goes. Unknown keys are ignored (they still show
// up in the audit diff).
func applyPatch(req *model.Request, patch map[string]interface{}) error {
	if raw, ok := patch["title"]; ok {
		title, ok := raw.(string)
		if !ok || title == "" {
			return fmt.Errorf("title must be a non-empty string")
		}
		req.Title = title
	}
	if raw, ok := patch["description"]; ok {
		desc, err := optionalString(raw, "description")
		if err != nil {
			return err
		}
		req.Description = desc
	}
	if raw, ok := patch["priority_code"]; ok {
		code, ok := raw.(string)
		if !ok || !model.ValidPriority(code) {
			return fmt.Errorf("priority_code must be one of P1..P5")
		}
		req.PriorityCode = code
	}
	if raw, ok := patch["category"]; ok {
		category, err := optionalString(raw, "category")
		if err != nil {
			return err
		}
		req.Category = category
	}
	if raw, ok := patch["estimated_cost"]; ok {
		cost, err := parseCost(raw)
		if err != nil {
			return err
		}
		req.EstimatedCost = cost
	}
	return nil
}

func optionalString(raw interface{}, field string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string or null", field)
	}
	return &s, nil
}

func parseCost(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("estimated_cost must be a number or numeric string")
	}
}
