package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApprovalHandler struct {
	approvalService  service.ApprovalService
	lifecycleService service.LifecycleService
	requestService   service.RequestService
}

func NewApprovalHandler(approvalService service.ApprovalService, lifecycleService service.LifecycleService, requestService service.RequestService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService:  approvalService,
		lifecycleService: lifecycleService,
		requestService:   requestService,
	}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", middleware.RequireRole("CEO", "ADMIN"), h.ListApprovals)
		approvals.GET("/:id", middleware.RequireAuth(), h.GetApproval)
		// The role gate here is UI convenience; Decide re-validates the
		// actor role server-side regardless.
		approvals.PUT("/:id/decide", middleware.RequireRole("CEO", "ADMIN"), h.Decide)
	}

	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireAuth())
	{
		requests.GET("/:id/approvals", h.ListByRequest)
		requests.GET("/:id/can-resubmit", h.CanResubmit)
	}
}

// ListApprovals returns approval rounds, optionally filtered by decision
// @Summary      List approval rounds
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        decision  query     string  false  "PENDING, APPROVED or REJECTED"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListApprovals(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	approvals, total, err := h.approvalService.ListApprovals(c.Request.Context(), orgID, c.Query("decision"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list approvals"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, approvals, total, params.Page, params.Limit))
}

func (h *ApprovalHandler) GetApproval(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid approval id"))
		return
	}

	approval, err := h.approvalService.GetApproval(c.Request.Context(), orgID, id)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to load approval"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approval))
}

type decideDTO struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	Notes    string `json:"notes"`
}

// Decide records a terminal decision on a pending approval round
// @Summary      Decide approval round
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string     true  "Approval ID"
// @Param        body  body      decideDTO  true  "Decision payload"
// @Success      200   {object}  response.Response{data=service.DecideResult}
// @Router       /api/approvals/{id}/decide [put]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid approval id"))
		return
	}

	var dto decideDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.lifecycleService.Decide(c.Request.Context(), orgID, id, dto.Decision, dto.Notes, actor)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to record decision"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListByRequest returns every round for one request, newest first
func (h *ApprovalHandler) ListByRequest(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	approvals, err := h.approvalService.ListByRequest(c.Request.Context(), orgID, requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list approvals"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approvals))
}

// CanResubmit reports whether the request may re-enter review and which
// round number a resubmission would open
func (h *ApprovalHandler) CanResubmit(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	req, err := h.requestService.GetRequest(c.Request.Context(), orgID, requestID)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to load request"))
		}
		return
	}

	check, err := h.approvalService.CanResubmit(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to check resubmission"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, check))
}
