package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository doubles. They mirror the persistence contracts the
// services rely on, including the compare-and-swap semantics and the
// one-active-round constraint the partial index enforces in postgres.

type memRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.Request
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[uuid.UUID]*model.Request)}
}

func (r *memRequestRepo) Create(_ context.Context, req *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, orgID, id uuid.UUID) (*model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) List(_ context.Context, orgID uuid.UUID, filter repository.RequestFilter) ([]model.Request, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Request
	for _, req := range r.requests {
		if req.OrgID != orgID {
			continue
		}
		if !filter.IncludeDeleted && req.IsDeleted {
			continue
		}
		if filter.Status != "" && string(req.Status) != filter.Status {
			continue
		}
		if filter.PriorityCode != "" && req.PriorityCode != filter.PriorityCode {
			continue
		}
		if filter.RequestedBy != nil && req.RequestedBy != *filter.RequestedBy {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *memRequestRepo) UpdateStatus(_ context.Context, req *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.OrgID != req.OrgID {
		return gorm.ErrRecordNotFound
	}
	stored.Status = req.Status
	stored.StatusChangedAt = req.StatusChangedAt
	stored.SubmittedAt = req.SubmittedAt
	stored.ApprovedAt = req.ApprovedAt
	stored.ClosedAt = req.ClosedAt
	stored.LastActivityAt = req.LastActivityAt
	return nil
}

func (r *memRequestRepo) UpdateContent(_ context.Context, req *model.Request, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.OrgID != req.OrgID || stored.RequestVersion != expectedVersion {
		return false, nil
	}
	stored.Title = req.Title
	stored.Description = req.Description
	stored.PriorityCode = req.PriorityCode
	stored.Category = req.Category
	stored.EstimatedCost = req.EstimatedCost
	stored.RequestVersion = req.RequestVersion
	stored.LastActivityAt = req.LastActivityAt
	return true, nil
}

func (r *memRequestRepo) SoftDelete(_ context.Context, orgID, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok || stored.OrgID != orgID {
		return gorm.ErrRecordNotFound
	}
	stored.IsDeleted = true
	stored.DeletionReason = &reason
	return nil
}

func (r *memRequestRepo) TouchActivity(_ context.Context, orgID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok || stored.OrgID != orgID {
		return gorm.ErrRecordNotFound
	}
	stored.LastActivityAt = at
	return nil
}

type memApprovalRepo struct {
	mu        sync.Mutex
	approvals map[uuid.UUID]*model.Approval
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{approvals: make(map[uuid.UUID]*model.Approval)}
}

func (r *memApprovalRepo) Create(_ context.Context, approval *model.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.approvals {
		if a.RequestID != approval.RequestID {
			continue
		}
		if a.ApprovalRound == approval.ApprovalRound {
			return fmt.Errorf("duplicate round %d for request %s", approval.ApprovalRound, approval.RequestID)
		}
		if a.Decision == model.DecisionPending && a.IsValid {
			return fmt.Errorf("request %s already has an active round", approval.RequestID)
		}
	}
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	cp := *approval
	r.approvals[approval.ID] = &cp
	return nil
}

func (r *memApprovalRepo) GetByID(_ context.Context, orgID, id uuid.UUID) (*model.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok || a.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memApprovalRepo) FindActive(_ context.Context, orgID, requestID uuid.UUID) (*model.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.approvals {
		if a.OrgID == orgID && a.RequestID == requestID && a.Decision == model.DecisionPending && a.IsValid {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memApprovalRepo) MaxRound(_ context.Context, orgID, requestID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxRound := 0
	for _, a := range r.approvals {
		if a.OrgID == orgID && a.RequestID == requestID && a.ApprovalRound > maxRound {
			maxRound = a.ApprovalRound
		}
	}
	return maxRound, nil
}

func (r *memApprovalRepo) HasPending(_ context.Context, orgID, requestID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.approvals {
		if a.OrgID == orgID && a.RequestID == requestID && a.Decision == model.DecisionPending && a.IsValid {
			return true, nil
		}
	}
	return false, nil
}

func (r *memApprovalRepo) ListByRequest(_ context.Context, orgID, requestID uuid.UUID) ([]model.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Approval
	for _, a := range r.approvals {
		if a.OrgID == orgID && a.RequestID == requestID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memApprovalRepo) List(_ context.Context, orgID uuid.UUID, decision string, _, _ int) ([]model.Approval, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Approval
	for _, a := range r.approvals {
		if a.OrgID != orgID {
			continue
		}
		if decision != "" && a.Decision != decision {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (r *memApprovalRepo) Invalidate(_ context.Context, orgID, id uuid.UUID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok || a.OrgID != orgID || a.Decision != model.DecisionPending || !a.IsValid {
		return false, nil
	}
	a.IsValid = false
	a.InvalidationReason = &reason
	a.InvalidatedAt = &at
	return true, nil
}

func (r *memApprovalRepo) Decide(_ context.Context, orgID, id uuid.UUID, decision string, notes *string, decidedBy uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok || a.OrgID != orgID || a.Decision != model.DecisionPending || !a.IsValid {
		return false, nil
	}
	a.Decision = decision
	a.DecisionNotes = notes
	a.DecidedBy = &decidedBy
	a.DecidedAt = &at
	return true, nil
}

// recordingAudit captures entries instead of writing to the database.
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAudit) GetAuditLogs(context.Context, uuid.UUID, string, int, int) ([]model.AuditLog, int64, error) {
	return nil, 0, nil
}

func (a *recordingAudit) GetEntityHistory(context.Context, uuid.UUID, uuid.UUID) ([]model.AuditLog, error) {
	return nil, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

// passthroughTx runs the callback without a real transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event string, _ map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}
