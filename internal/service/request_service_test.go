package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRequestFixture() (*memRequestRepo, *recordingAudit, RequestService) {
	repo := newMemRequestRepo()
	audit := &recordingAudit{}
	return repo, audit, NewRequestService(repo, audit)
}

func TestCreateRequestStartsAsDraft(t *testing.T) {
	_, audit, svc := newRequestFixture()
	orgID := uuid.New()
	actor := Actor{ID: uuid.New(), Role: workflow.RoleManager}

	req, err := svc.CreateRequest(context.Background(), orgID, CreateRequestDTO{
		Title:         "Conference sponsorship",
		PriorityCode:  model.PriorityP2,
		EstimatedCost: "7500.50",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusDraft, req.Status)
	require.Equal(t, 1, req.RequestVersion)
	require.Equal(t, actor.ID, req.RequestedBy)
	require.Equal(t, "7500.5", req.EstimatedCost.String())
	require.False(t, req.StatusChangedAt.IsZero())

	require.Contains(t, audit.actions(), model.ActionCreateRequest)
}

func TestCreateRequestValidatesInput(t *testing.T) {
	_, _, svc := newRequestFixture()
	actor := Actor{ID: uuid.New(), Role: workflow.RoleManager}

	_, err := svc.CreateRequest(context.Background(), uuid.New(), CreateRequestDTO{
		Title:        "Bad priority",
		PriorityCode: "P0",
	}, actor)
	require.Error(t, err)

	_, err = svc.CreateRequest(context.Background(), uuid.New(), CreateRequestDTO{
		Title:         "Bad cost",
		PriorityCode:  model.PriorityP3,
		EstimatedCost: "not-a-number",
	}, actor)
	require.Error(t, err)
}

func TestGetRequestReturnsSoftDeleted(t *testing.T) {
	repo, _, svc := newRequestFixture()
	orgID := uuid.New()
	actor := Actor{ID: uuid.New(), Role: workflow.RoleManager}

	req, err := svc.CreateRequest(context.Background(), orgID, CreateRequestDTO{
		Title:        "To be deleted",
		PriorityCode: model.PriorityP4,
	}, actor)
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(context.Background(), orgID, req.ID, "duplicate"))

	got, err := svc.GetRequest(context.Background(), orgID, req.ID)
	require.NoError(t, err)
	require.True(t, got.IsDeleted)
	require.Equal(t, "duplicate", *got.DeletionReason)
}

func TestListRequestsHidesDeletedFromNonAdmins(t *testing.T) {
	repo, _, svc := newRequestFixture()
	orgID := uuid.New()
	manager := Actor{ID: uuid.New(), Role: workflow.RoleManager}

	kept, err := svc.CreateRequest(context.Background(), orgID, CreateRequestDTO{Title: "Kept", PriorityCode: model.PriorityP3}, manager)
	require.NoError(t, err)
	gone, err := svc.CreateRequest(context.Background(), orgID, CreateRequestDTO{Title: "Gone", PriorityCode: model.PriorityP3}, manager)
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(context.Background(), orgID, gone.ID, "obsolete"))

	listed, total, err := svc.ListRequests(context.Background(), orgID,
		repository.RequestFilter{IncludeDeleted: true}, manager)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, kept.ID, listed[0].ID)

	_, total, err = svc.ListRequests(context.Background(), orgID,
		repository.RequestFilter{IncludeDeleted: true}, Actor{ID: uuid.New(), Role: workflow.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestDeleteRequestRequiresOwnerOrAdmin(t *testing.T) {
	_, _, svc := newRequestFixture()
	orgID := uuid.New()
	owner := Actor{ID: uuid.New(), Role: workflow.RoleManager}

	req, err := svc.CreateRequest(context.Background(), orgID, CreateRequestDTO{Title: "Mine", PriorityCode: model.PriorityP3}, owner)
	require.NoError(t, err)

	stranger := Actor{ID: uuid.New(), Role: workflow.RoleManager}
	err = svc.DeleteRequest(context.Background(), orgID, req.ID, "not yours", stranger)
	require.ErrorIs(t, err, workflow.ErrForbidden)

	require.NoError(t, svc.DeleteRequest(context.Background(), orgID, req.ID, "cleanup", owner))

	got, err := svc.GetRequest(context.Background(), orgID, req.ID)
	require.NoError(t, err)
	require.True(t, got.IsDeleted)
}
