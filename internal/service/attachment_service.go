package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/storage"

	"github.com/google/uuid"
)

// AttachmentService stores request attachments: bytes in object storage,
// metadata in the attachments table. Attachments are outside the material
// field set, so uploads never invalidate an open approval.
type AttachmentService interface {
	Upload(ctx context.Context, orgID, requestID uuid.UUID, fileName, contentType string, size int64, reader io.Reader, actor Actor) (*model.Attachment, error)
	PresignURL(ctx context.Context, orgID, attachmentID uuid.UUID) (string, error)
	ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Attachment, error)
}

type attachmentService struct {
	attachments repository.AttachmentRepository
	requests    repository.RequestRepository
	store       storage.ObjectStore
	audit       AuditService
	now         func() time.Time
}

func NewAttachmentService(attachments repository.AttachmentRepository, requests repository.RequestRepository, store storage.ObjectStore, audit AuditService) AttachmentService {
	return &attachmentService{
		attachments: attachments,
		requests:    requests,
		store:       store,
		audit:       audit,
		now:         time.Now,
	}
}

func (s *attachmentService) Upload(ctx context.Context, orgID, requestID uuid.UUID, fileName, contentType string, size int64, reader io.Reader, actor Actor) (*model.Attachment, error) {
	if _, err := s.requests.GetByID(ctx, orgID, requestID); err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	objectKey, err := s.store.Put(ctx, orgID.String()+"/"+requestID.String(), fileName, contentType, size, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	att := &model.Attachment{
		OrgID:       orgID,
		RequestID:   requestID,
		FileName:    fileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  actor.ID,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	_ = s.requests.TouchActivity(ctx, orgID, requestID, s.now())

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest,
		EntityID:   requestID,
		Action:     model.ActionUploadAttachment,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"file_name": fileName, "size_bytes": size},
	})

	return att, nil
}

func (s *attachmentService) PresignURL(ctx context.Context, orgID, attachmentID uuid.UUID) (string, error) {
	att, err := s.attachments.GetByID(ctx, orgID, attachmentID)
	if err != nil {
		return "", fmt.Errorf("attachment not found: %w", err)
	}
	return s.store.PresignGet(ctx, att.ObjectKey, att.FileName)
}

func (s *attachmentService) ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Attachment, error) {
	return s.attachments.ListByRequest(ctx, orgID, requestID)
}
