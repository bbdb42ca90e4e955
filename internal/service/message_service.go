package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

type PostMessageDTO struct {
	Body string `json:"body" binding:"required"`
}

// MessageService handles the per-request discussion thread.
type MessageService interface {
	PostMessage(ctx context.Context, orgID, requestID uuid.UUID, body string, actor Actor) (*model.Message, error)
	ListMessages(ctx context.Context, orgID, requestID uuid.UUID, page, limit int) ([]model.Message, int64, error)
}

type messageService struct {
	messages repository.MessageRepository
	requests repository.RequestRepository
	audit    AuditService
	events   EventPublisher
	now      func() time.Time
}

func NewMessageService(messages repository.MessageRepository, requests repository.RequestRepository, audit AuditService, events EventPublisher) MessageService {
	return &messageService{messages: messages, requests: requests, audit: audit, events: events, now: time.Now}
}

func (s *messageService) PostMessage(ctx context.Context, orgID, requestID uuid.UUID, body string, actor Actor) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body must not be empty")
	}

	// The thread hangs off the request; make sure it exists in this org.
	if _, err := s.requests.GetByID(ctx, orgID, requestID); err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	msg := &model.Message{
		OrgID:     orgID,
		RequestID: requestID,
		SenderID:  actor.ID,
		Body:      body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	// Messages count as activity but never as content: no version bump,
	// no invalidation.
	_ = s.requests.TouchActivity(ctx, orgID, requestID, s.now())

	s.audit.Record(ctx, AuditEntry{
		OrgID:      orgID,
		EntityType: model.EntityRequest,
		EntityID:   requestID,
		Action:     model.ActionPostMessage,
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Details:    map[string]interface{}{"message_id": msg.ID.String()},
	})

	if s.events != nil {
		s.events.Publish("request.message", map[string]interface{}{
			"request_id": requestID.String(),
			"org_id":     orgID.String(),
			"message_id": msg.ID.String(),
		})
	}

	return msg, nil
}

func (s *messageService) ListMessages(ctx context.Context, orgID, requestID uuid.UUID, page, limit int) ([]model.Message, int64, error) {
	return s.messages.ListByRequest(ctx, orgID, requestID, page, limit)
}
