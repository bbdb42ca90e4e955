package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttachmentRepository interface {
	Create(ctx context.Context, att *model.Attachment) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Attachment, error)
	ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, att *model.Attachment) error {
	return GetDB(ctx, r.db).Create(att).Error
}

func (r *attachmentRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Attachment, error) {
	var att model.Attachment
	if err := GetDB(ctx, r.db).First(&att, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, orgID, requestID uuid.UUID) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := GetDB(ctx, r.db).
		Where("org_id = ? AND request_id = ?", orgID, requestID).
		Order("created_at DESC").
		Find(&attachments).Error
	return attachments, err
}
