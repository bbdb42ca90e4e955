package service

import (
	"context"
	"encoding/json"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditEntry is one state-changing action to record.
type AuditEntry struct {
	OrgID      uuid.UUID
	EntityType string // model.EntityRequest | model.EntityApproval
	EntityID   uuid.UUID
	Action     string
	ActorID    *uuid.UUID // nil for system actions
	ActorRole  string
	Details    map[string]interface{}
}

// AuditService is the write-only audit sink plus the admin read side.
// Record never returns an error: a failed audit insert must not block or
// roll back the operation that produced it, so failures are only logged.
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry)
	GetAuditLogs(ctx context.Context, orgID uuid.UUID, entityType string, page, limit int) ([]model.AuditLog, int64, error)
	GetEntityHistory(ctx context.Context, orgID, entityID uuid.UUID) ([]model.AuditLog, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		details = []byte("{}")
	}

	row := model.AuditLog{
		OrgID:      entry.OrgID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Details:    string(details),
	}

	// Detach from the caller's deadline and any open transaction: a
	// cancelled request or rolled-back tx must not take the trail with it,
	// and a failed audit insert must not abort the primary write.
	if err := s.repo.Log(context.Background(), &row); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		}).Error("audit write failed")
	}
}

func (s *auditService) GetAuditLogs(ctx context.Context, orgID uuid.UUID, entityType string, page, limit int) ([]model.AuditLog, int64, error) {
	return s.repo.List(ctx, orgID, entityType, page, limit)
}

func (s *auditService) GetEntityHistory(ctx context.Context, orgID, entityID uuid.UUID) ([]model.AuditLog, error) {
	return s.repo.ListByEntity(ctx, orgID, entityID)
}
