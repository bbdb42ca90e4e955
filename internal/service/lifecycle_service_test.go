package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	requests  *memRequestRepo
	approvals *memApprovalRepo
	rounds    ApprovalService
	audit     *recordingAudit
	events    *recordingPublisher
	svc       LifecycleService
	orgID     uuid.UUID
	actor     Actor
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	requests := newMemRequestRepo()
	approvals := newMemApprovalRepo()
	audit := &recordingAudit{}
	events := &recordingPublisher{}
	rounds := NewApprovalService(approvals, audit)
	svc := NewLifecycleService(requests, approvals, rounds, audit, passthroughTx{}, events)
	return &lifecycleFixture{
		requests:  requests,
		approvals: approvals,
		rounds:    rounds,
		audit:     audit,
		events:    events,
		svc:       svc,
		orgID:     uuid.New(),
		actor:     Actor{ID: uuid.New(), Role: workflow.RoleManager},
	}
}

func (f *lifecycleFixture) seedRequest(t *testing.T, status workflow.Status) *model.Request {
	t.Helper()
	desc := "office renovation, second floor"
	req := &model.Request{
		OrgID:          f.orgID,
		Title:          "Office renovation",
		Description:    &desc,
		PriorityCode:   model.PriorityP3,
		Status:         status,
		RequestVersion: 1,
		RequestedBy:    f.actor.ID,
	}
	require.NoError(t, f.requests.Create(context.Background(), req))
	return req
}

// seedInReview drives a request into IN_REVIEW the normal way so an
// approval round is open.
func (f *lifecycleFixture) seedInReview(t *testing.T) (*model.Request, *model.Approval) {
	t.Helper()
	req := f.seedRequest(t, workflow.StatusDraft)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.orgID, req.ID, workflow.StatusSubmitted, f.actor)
	require.NoError(t, err)
	result, err := f.svc.Transition(ctx, f.orgID, req.ID, workflow.StatusInReview, f.actor)
	require.NoError(t, err)
	require.NotNil(t, result.Approval)
	require.Empty(t, result.Warning)

	return result.Request, result.Approval
}

func TestTransitionDraftToSubmitted(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	result, err := f.svc.Transition(context.Background(), f.orgID, req.ID, workflow.StatusSubmitted, f.actor)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusSubmitted, result.Request.Status)
	require.NotNil(t, result.Request.SubmittedAt)
	require.Nil(t, result.Approval)

	require.Contains(t, f.audit.actions(), model.ActionStatusChange)
	require.Contains(t, f.events.events, "request.status_changed")
}

func TestTransitionToInReviewOpensRoundOne(t *testing.T) {
	f := newLifecycleFixture(t)
	_, approval := f.seedInReview(t)

	require.Equal(t, 1, approval.ApprovalRound)
	require.Equal(t, 1, approval.RequestVersion)
	require.True(t, approval.Active())
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	_, err := f.svc.Transition(context.Background(), f.orgID, req.ID, workflow.StatusApproved, Actor{ID: uuid.New(), Role: workflow.RoleCEO})
	require.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestTransitionFromTerminalStateFails(t *testing.T) {
	f := newLifecycleFixture(t)
	ceo := Actor{ID: uuid.New(), Role: workflow.RoleCEO}

	for _, terminal := range []workflow.Status{workflow.StatusCancelled, workflow.StatusClosed} {
		req := f.seedRequest(t, terminal)
		_, err := f.svc.Transition(context.Background(), f.orgID, req.ID, workflow.StatusSubmitted, ceo)
		require.ErrorIs(t, err, workflow.ErrInvalidTransition)
	}
}

func TestTransitionEnforcesRoleGate(t *testing.T) {
	f := newLifecycleFixture(t)
	req, _ := f.seedInReview(t)

	_, err := f.svc.Transition(context.Background(), f.orgID, req.ID, workflow.StatusApproved, f.actor)
	require.ErrorIs(t, err, workflow.ErrForbidden)

	// The same edge is open to the CEO.
	result, err := f.svc.Transition(context.Background(), f.orgID, req.ID, workflow.StatusApproved, Actor{ID: uuid.New(), Role: workflow.RoleCEO})
	require.NoError(t, err)
	require.Equal(t, workflow.StatusApproved, result.Request.Status)
	require.NotNil(t, result.Request.ApprovedAt)
}

func TestTransitionUnknownRequest(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Transition(context.Background(), f.orgID, uuid.New(), workflow.StatusSubmitted, f.actor)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTransitionOtherOrgInvisible(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	_, err := f.svc.Transition(context.Background(), uuid.New(), req.ID, workflow.StatusSubmitted, f.actor)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestDraftEditDoesNotBumpVersion(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	result, err := f.svc.ApplyContentEdit(context.Background(), f.orgID, req.ID,
		map[string]interface{}{"title": "Office renovation, both floors"}, 1, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, result.Request.RequestVersion)
	require.False(t, result.Invalidated)
	require.Equal(t, []string{"title"}, result.ChangedFields)

	stored, err := f.requests.GetByID(context.Background(), f.orgID, req.ID)
	require.NoError(t, err)
	require.Equal(t, "Office renovation, both floors", stored.Title)
	require.Equal(t, 1, stored.RequestVersion)
}

func TestMaterialEditInvalidatesOpenRound(t *testing.T) {
	f := newLifecycleFixture(t)
	req, approval := f.seedInReview(t)
	ctx := context.Background()

	result, err := f.svc.ApplyContentEdit(ctx, f.orgID, req.ID,
		map[string]interface{}{"priority_code": model.PriorityP1}, 1, f.actor)
	require.NoError(t, err)
	require.True(t, result.Material)
	require.True(t, result.Invalidated)
	require.Equal(t, 2, result.Request.RequestVersion)

	stored, err := f.approvals.GetByID(ctx, f.orgID, approval.ID)
	require.NoError(t, err)
	require.False(t, stored.IsValid)
	require.Equal(t, InvalidationReasonMaterialEdit, *stored.InvalidationReason)

	// The dead round re-routes the request out of review.
	reloaded, err := f.requests.GetByID(ctx, f.orgID, req.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusRejected, reloaded.Status)

	// The invalidated round stays undecided but must not block resubmission.
	check, err := f.rounds.CanResubmit(ctx, reloaded)
	require.NoError(t, err)
	require.True(t, check.Allowed)
	require.Equal(t, 2, check.NextRound)

	resubmitted, err := f.svc.Resubmit(ctx, f.orgID, req.ID, f.actor)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusSubmitted, resubmitted.Request.Status)

	reviewed, err := f.svc.Transition(ctx, f.orgID, req.ID, workflow.StatusInReview, f.actor)
	require.NoError(t, err)
	require.NotNil(t, reviewed.Approval)
	require.Equal(t, 2, reviewed.Approval.ApprovalRound)
}

func TestNonMaterialEditKeepsRoundActive(t *testing.T) {
	f := newLifecycleFixture(t)
	req, approval := f.seedInReview(t)
	ctx := context.Background()

	result, err := f.svc.ApplyContentEdit(ctx, f.orgID, req.ID,
		map[string]interface{}{"estimated_cost": "42000"}, 1, f.actor)
	require.NoError(t, err)
	require.False(t, result.Material)
	require.False(t, result.Invalidated)
	require.Equal(t, 2, result.Request.RequestVersion)

	stored, err := f.approvals.GetByID(ctx, f.orgID, approval.ID)
	require.NoError(t, err)
	require.True(t, stored.Active())

	reloaded, err := f.requests.GetByID(ctx, f.orgID, req.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusInReview, reloaded.Status)
}

func TestEditWithStaleVersionConflicts(t *testing.T) {
	f := newLifecycleFixture(t)
	req, _ := f.seedInReview(t)

	_, err := f.svc.ApplyContentEdit(context.Background(), f.orgID, req.ID,
		map[string]interface{}{"title": "Stale edit"}, 7, f.actor)
	require.ErrorIs(t, err, workflow.ErrVersionConflict)
}

func TestEditRejectsInvalidPatch(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	_, err := f.svc.ApplyContentEdit(context.Background(), f.orgID, req.ID,
		map[string]interface{}{"title": ""}, 1, f.actor)
	require.Error(t, err)

	_, err = f.svc.ApplyContentEdit(context.Background(), f.orgID, req.ID,
		map[string]interface{}{"priority_code": "P9"}, 1, f.actor)
	require.Error(t, err)
}

func TestEditDeletedRequestNotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)
	require.NoError(t, f.requests.SoftDelete(context.Background(), f.orgID, req.ID, "duplicate"))

	_, err := f.svc.ApplyContentEdit(context.Background(), f.orgID, req.ID,
		map[string]interface{}{"title": "Edits after delete"}, 1, f.actor)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestDecideApprovedRoutesRequest(t *testing.T) {
	f := newLifecycleFixture(t)
	req, approval := f.seedInReview(t)
	ceo := Actor{ID: uuid.New(), Role: workflow.RoleCEO}

	result, err := f.svc.Decide(context.Background(), f.orgID, approval.ID, model.DecisionApproved, "approved in board meeting", ceo)
	require.NoError(t, err)
	require.Empty(t, result.Warning)
	require.Equal(t, model.DecisionApproved, result.Approval.Decision)
	require.NotNil(t, result.Request)
	require.Equal(t, workflow.StatusApproved, result.Request.Status)

	reloaded, err := f.requests.GetByID(context.Background(), f.orgID, req.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ApprovedAt)
}

func TestDecideRejectedRoutesRequest(t *testing.T) {
	f := newLifecycleFixture(t)
	req, approval := f.seedInReview(t)
	ceo := Actor{ID: uuid.New(), Role: workflow.RoleCEO}

	result, err := f.svc.Decide(context.Background(), f.orgID, approval.ID, model.DecisionRejected, "budget freeze", ceo)
	require.NoError(t, err)
	require.Equal(t, model.DecisionRejected, result.Approval.Decision)

	reloaded, err := f.requests.GetByID(context.Background(), f.orgID, req.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusRejected, reloaded.Status)
}

func TestResubmitRequiresRejectedStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedRequest(t, workflow.StatusDraft)

	_, err := f.svc.Resubmit(context.Background(), f.orgID, req.ID, f.actor)
	require.ErrorIs(t, err, workflow.ErrResubmitNotAllowed)
}

func TestResubmitCycleUsesFreshRounds(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ceo := Actor{ID: uuid.New(), Role: workflow.RoleCEO}

	req, _ := f.seedInReview(t)

	// Three reject/resubmit cycles. Every pass through review must open a
	// strictly higher round.
	for cycle := 1; cycle <= 3; cycle++ {
		active, err := f.approvals.FindActive(ctx, f.orgID, req.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		require.Equal(t, cycle, active.ApprovalRound)

		_, err = f.svc.Decide(ctx, f.orgID, active.ID, model.DecisionRejected, "", ceo)
		require.NoError(t, err)

		result, err := f.svc.Resubmit(ctx, f.orgID, req.ID, f.actor)
		require.NoError(t, err)
		require.Equal(t, workflow.StatusSubmitted, result.Request.Status)

		reviewed, err := f.svc.Transition(ctx, f.orgID, req.ID, workflow.StatusInReview, f.actor)
		require.NoError(t, err)
		require.NotNil(t, reviewed.Approval)
		require.Equal(t, cycle+1, reviewed.Approval.ApprovalRound)
	}

	rounds, err := f.approvals.ListByRequest(ctx, f.orgID, req.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 4)
}

func TestApprovedRequestCanClose(t *testing.T) {
	f := newLifecycleFixture(t)
	_, approval := f.seedInReview(t)
	ctx := context.Background()
	ceo := Actor{ID: uuid.New(), Role: workflow.RoleCEO}

	decided, err := f.svc.Decide(ctx, f.orgID, approval.ID, model.DecisionApproved, "", ceo)
	require.NoError(t, err)

	result, err := f.svc.Transition(ctx, f.orgID, decided.Request.ID, workflow.StatusClosed, ceo)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusClosed, result.Request.Status)
	require.NotNil(t, result.Request.ClosedAt)
}
