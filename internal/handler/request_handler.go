package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService   service.RequestService
	lifecycleService service.LifecycleService
}

func NewRequestHandler(requestService service.RequestService, lifecycleService service.LifecycleService) *RequestHandler {
	return &RequestHandler{requestService: requestService, lifecycleService: lifecycleService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireAuth())
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.PATCH("/:id", h.EditRequest)
		requests.DELETE("/:id", h.DeleteRequest)
		requests.POST("/:id/transition", h.Transition)
		requests.POST("/:id/resubmit", h.Resubmit)
	}
}

// CreateRequest creates a new request in DRAFT
// @Summary      Create request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var dto service.CreateRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}

	req, err := h.requestService.CreateRequest(c.Request.Context(), orgID, dto, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, req))
}

// ListRequests returns the org's requests, filterable by status/priority
func (h *RequestHandler) ListRequests(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := repository.RequestFilter{
		Status:         c.Query("status"),
		PriorityCode:   c.Query("priority"),
		IncludeDeleted: c.Query("include_deleted") == "true",
		Page:           params.Page,
		Limit:          params.Limit,
	}
	if c.Query("mine") == "true" {
		filter.RequestedBy = &actor.ID
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), orgID, filter, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list requests"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, total, params.Page, params.Limit))
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	req, err := h.requestService.GetRequest(c.Request.Context(), orgID, id)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to load request"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// EditRequest applies a content edit. The body is a partial field map plus
// the request_version the caller read; a stale version is rejected rather
// than silently overwritten.
// @Summary      Edit request content
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Request ID"
// @Param        body  body      map[string]interface{}  true  "Field patch + request_version"
// @Success      200   {object}  response.Response{data=service.EditResult}
// @Router       /api/requests/{id} [patch]
func (h *RequestHandler) EditRequest(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	rawVersion, ok := patch["request_version"].(float64)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "request_version is required"))
		return
	}
	delete(patch, "request_version")

	result, err := h.lifecycleService.ApplyContentEdit(c.Request.Context(), orgID, id, patch, int(rawVersion), actor)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	var dto service.DeleteRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "deletion reason is required"))
		return
	}

	if err := h.requestService.DeleteRequest(c.Request.Context(), orgID, id, dto.Reason, actor); err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to delete request"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

type transitionDTO struct {
	Target string `json:"target" binding:"required"`
}

// Transition moves a request to a new status
// @Summary      Transition request status
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Request ID"
// @Param        body  body      transitionDTO  true  "Target status"
// @Success      200   {object}  response.Response{data=service.TransitionResult}
// @Router       /api/requests/{id}/transition [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	var dto transitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.lifecycleService.Transition(c.Request.Context(), orgID, id, workflow.Status(dto.Target), actor)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to change status"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Resubmit re-enters the review pipeline after a rejection
func (h *RequestHandler) Resubmit(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	result, err := h.lifecycleService.Resubmit(c.Request.Context(), orgID, id, actor)
	if err != nil {
		if !handleDomainError(c, err) {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resubmit request"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// callerIdentity pulls the org scope and actor from the authenticated
// context, aborting with 401 when the claims are malformed.
func callerIdentity(c *gin.Context) (uuid.UUID, service.Actor, bool) {
	orgID, okOrg := middleware.CurrentOrgID(c)
	userID, okUser := middleware.CurrentUserID(c)
	if !okOrg || !okUser {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid identity claims"))
		return uuid.Nil, service.Actor{}, false
	}
	actor := service.Actor{ID: userID, Role: workflow.Role(middleware.CurrentRole(c))}
	return orgID, actor, true
}
