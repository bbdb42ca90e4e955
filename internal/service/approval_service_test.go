package service

import (
	"context"
	"encoding/json"
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newApprovalFixture() (*memApprovalRepo, *recordingAudit, ApprovalService) {
	repo := newMemApprovalRepo()
	audit := &recordingAudit{}
	return repo, audit, NewApprovalService(repo, audit)
}

func fixtureRequest(status workflow.Status, version int) *model.Request {
	desc := "quarterly budget increase"
	return &model.Request{
		ID:             uuid.New(),
		OrgID:          uuid.New(),
		Title:          "Budget increase",
		Description:    &desc,
		PriorityCode:   model.PriorityP2,
		Status:         status,
		RequestVersion: version,
		RequestedBy:    uuid.New(),
	}
}

func ceoActor() Actor {
	return Actor{ID: uuid.New(), Role: workflow.RoleCEO}
}

func TestOpenRoundSnapshotsContent(t *testing.T) {
	_, audit, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 3)

	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)
	require.Equal(t, model.DecisionPending, approval.Decision)
	require.True(t, approval.IsValid)
	require.Equal(t, 1, approval.ApprovalRound)
	require.Equal(t, 3, approval.RequestVersion)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(approval.Snapshot), &snapshot))
	require.Equal(t, "Budget increase", snapshot["title"])
	require.Equal(t, float64(3), snapshot["request_version"])

	require.Contains(t, audit.actions(), model.ActionOpenRound)
}

func TestOpenRoundRejectsSecondActiveRound(t *testing.T) {
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)

	_, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	_, err = svc.OpenRound(context.Background(), req, 2)
	require.Error(t, err)
}

func TestDecideRecordsDecision(t *testing.T) {
	repo, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)
	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	actor := ceoActor()
	decided, err := svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionApproved, "looks fine", actor)
	require.NoError(t, err)
	require.Equal(t, model.DecisionApproved, decided.Decision)
	require.NotNil(t, decided.DecidedAt)
	require.Equal(t, actor.ID, *decided.DecidedBy)
	require.Equal(t, "looks fine", *decided.DecisionNotes)

	stored, err := repo.GetByID(context.Background(), req.OrgID, approval.ID)
	require.NoError(t, err)
	require.False(t, stored.Active())
}

func TestDecideTwiceReturnsAlreadyDecided(t *testing.T) {
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)
	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	actor := ceoActor()
	_, err = svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionApproved, "", actor)
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionRejected, "", actor)
	require.ErrorIs(t, err, workflow.ErrAlreadyDecided)
}

func TestDecideOnInvalidatedRound(t *testing.T) {
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)
	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), req.OrgID, approval.ID, InvalidationReasonMaterialEdit))

	_, err = svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionApproved, "", ceoActor())
	require.ErrorIs(t, err, workflow.ErrInvalidated)
}

func TestDecideRequiresExecutiveRole(t *testing.T) {
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)
	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionApproved, "", Actor{ID: uuid.New(), Role: workflow.RoleManager})
	require.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestDecideUnknownApproval(t *testing.T) {
	_, _, svc := newApprovalFixture()

	_, err := svc.Decide(context.Background(), uuid.New(), uuid.New(), model.DecisionApproved, "", ceoActor())
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	repo, audit, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)
	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), req.OrgID, approval.ID, InvalidationReasonMaterialEdit))
	require.NoError(t, svc.Invalidate(context.Background(), req.OrgID, approval.ID, "second call"))

	stored, err := repo.GetByID(context.Background(), req.OrgID, approval.ID)
	require.NoError(t, err)
	require.False(t, stored.IsValid)
	require.Equal(t, InvalidationReasonMaterialEdit, *stored.InvalidationReason)

	// Only the first call records an audit entry.
	count := 0
	for _, action := range audit.actions() {
		if action == model.ActionInvalidateRound {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestCanResubmitOnlyFromRejected(t *testing.T) {
	_, _, svc := newApprovalFixture()

	for _, status := range []workflow.Status{workflow.StatusDraft, workflow.StatusSubmitted,
		workflow.StatusInReview, workflow.StatusApproved, workflow.StatusCancelled, workflow.StatusClosed} {
		check, err := svc.CanResubmit(context.Background(), fixtureRequest(status, 1))
		require.NoError(t, err)
		require.Falsef(t, check.Allowed, "resubmit must be blocked from %s", status)
		require.NotEmpty(t, check.Reason)
	}

	check, err := svc.CanResubmit(context.Background(), fixtureRequest(workflow.StatusRejected, 1))
	require.NoError(t, err)
	require.True(t, check.Allowed)
	require.Equal(t, 1, check.NextRound)
}

func TestCanResubmitAdvancesRound(t *testing.T) {
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)

	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), req.OrgID, approval.ID, model.DecisionRejected, "", ceoActor())
	require.NoError(t, err)

	req.Status = workflow.StatusRejected
	check, err := svc.CanResubmit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, check.Allowed)
	require.Equal(t, 2, check.NextRound)
}

func TestCanResubmitIgnoresInvalidatedRound(t *testing.T) {
	// An invalidated round stays undecided forever. Only a round that is
	// still valid counts as pending for the resubmission gate.
	_, _, svc := newApprovalFixture()
	req := fixtureRequest(workflow.StatusInReview, 1)

	approval, err := svc.OpenRound(context.Background(), req, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background(), req.OrgID, approval.ID, InvalidationReasonMaterialEdit))

	req.Status = workflow.StatusRejected
	check, err := svc.CanResubmit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, check.Allowed)
	require.Equal(t, 2, check.NextRound)
}
