package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const activeAnnouncementsTTL = 60 * time.Second

type CreateAnnouncementDTO struct {
	Title     string     `json:"title" binding:"required"`
	Body      string     `json:"body" binding:"required"`
	Pinned    bool       `json:"pinned"`
	PublishAt *time.Time `json:"publish_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// AnnouncementService manages the org-wide banner. The active list is the
// hot read path (every page load), so it is cached in redis with a short
// TTL; writes drop the cache key.
type AnnouncementService interface {
	Create(ctx context.Context, orgID uuid.UUID, dto CreateAnnouncementDTO, actor Actor) (*model.Announcement, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]model.Announcement, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Announcement, int64, error)
	Deactivate(ctx context.Context, orgID, id uuid.UUID, actor Actor) error
}

type announcementService struct {
	announcements repository.AnnouncementRepository
	cache         *redis.Client // optional; nil disables caching
	audit         AuditService
	events        EventPublisher
	now           func() time.Time
}

func NewAnnouncementService(announcements repository.AnnouncementRepository, cache *redis.Client, audit AuditService, events EventPublisher) AnnouncementService {
	return &announcementService{
		announcements: announcements,
		cache:         cache,
		audit:         audit,
		events:        events,
		now:           time.Now,
	}
}

func activeCacheKey(orgID uuid.UUID) string {
	return "announcements:active:" + orgID.String()
}

func (s *announcementService) Create(ctx context.Context, orgID uuid.UUID, dto CreateAnnouncementDTO, actor Actor) (*model.Announcement, error) {
	a := &model.Announcement{
		OrgID:     orgID,
		Title:     dto.Title,
		Body:      dto.Body,
		Pinned:    dto.Pinned,
		IsActive:  true,
		CreatedBy: actor.ID,
		PublishAt: dto.PublishAt,
		ExpiresAt: dto.ExpiresAt,
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	s.dropCache(ctx, orgID)

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest, // announcements ride the request audit trail
		EntityID:   a.ID,
		Action:     model.ActionCreateAnnouncement,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"title": dto.Title, "pinned": dto.Pinned},
	})

	if s.events != nil {
		s.events.Publish("announcement.created", map[string]interface{}{
			"announcement_id": a.ID.String(),
			"org_id":          orgID.String(),
			"title":           a.Title,
		})
	}

	return a, nil
}

func (s *announcementService) ListActive(ctx context.Context, orgID uuid.UUID) ([]model.Announcement, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, activeCacheKey(orgID)).Result()
		if err == nil {
			var cached []model.Announcement
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			logrus.WithError(err).Warn("announcement cache read failed")
		}
	}

	active, err := s.announcements.ListActive(ctx, orgID, s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(active); err == nil {
			if err := s.cache.Set(ctx, activeCacheKey(orgID), raw, activeAnnouncementsTTL).Err(); err != nil {
				logrus.WithError(err).Warn("announcement cache write failed")
			}
		}
	}

	return active, nil
}

func (s *announcementService) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Announcement, int64, error) {
	return s.announcements.List(ctx, orgID, page, limit)
}

func (s *announcementService) Deactivate(ctx context.Context, orgID, id uuid.UUID, actor Actor) error {
	if err := s.announcements.Deactivate(ctx, orgID, id); err != nil {
		return fmt.Errorf("failed to deactivate announcement: %w", err)
	}
	s.dropCache(ctx, orgID)
	return nil
}

func (s *announcementService) dropCache(ctx context.Context, orgID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activeCacheKey(orgID)).Err(); err != nil {
		logrus.WithError(err).Warn("announcement cache invalidation failed")
	}
}
