package repository

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Announcement, error)
	// ListActive returns announcements whose publish window contains now,
	// pinned first, newest first within each group.
	ListActive(ctx context.Context, orgID uuid.UUID, now time.Time) ([]model.Announcement, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Announcement, int64, error)
	Update(ctx context.Context, a *model.Announcement) error
	Deactivate(ctx context.Context, orgID, id uuid.UUID) error
}

type announcementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *model.Announcement) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *announcementRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Announcement, error) {
	var a model.Announcement
	if err := GetDB(ctx, r.db).First(&a, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepository) ListActive(ctx context.Context, orgID uuid.UUID, now time.Time) ([]model.Announcement, error) {
	var announcements []model.Announcement
	err := GetDB(ctx, r.db).
		Where("org_id = ? AND is_active = ?", orgID, true).
		Where("publish_at IS NULL OR publish_at <= ?", now).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("pinned DESC, created_at DESC").
		Find(&announcements).Error
	return announcements, err
}

func (r *announcementRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Announcement, int64, error) {
	var announcements []model.Announcement
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Announcement{}).Where("org_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.OffsetFor(page, limit)
	if err := query.
		Preload("Author").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&announcements).Error; err != nil {
		return nil, 0, err
	}

	return announcements, total, nil
}

func (r *announcementRepository) Update(ctx context.Context, a *model.Announcement) error {
	return GetDB(ctx, r.db).Save(a).Error
}

func (r *announcementRepository) Deactivate(ctx context.Context, orgID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Announcement{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("is_active", false).Error
}
