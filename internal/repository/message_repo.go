package repository

import (
	"context"

	"backend/internal/model"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByRequest(ctx context.Context, orgID, requestID uuid.UUID, page, limit int) ([]model.Message, int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return GetDB(ctx, r.db).Create(msg).Error
}

func (r *messageRepository) ListByRequest(ctx context.Context, orgID, requestID uuid.UUID, page, limit int) ([]model.Message, int64, error) {
	var messages []model.Message
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Message{}).Where("org_id = ? AND request_id = ?", orgID, requestID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.OffsetFor(page, limit)
	if err := query.
		Preload("Sender").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
