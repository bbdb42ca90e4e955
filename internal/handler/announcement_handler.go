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

type AnnouncementHandler struct {
	announcementService service.AnnouncementService
}

func NewAnnouncementHandler(announcementService service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

func (h *AnnouncementHandler) RegisterRoutes(router *gin.RouterGroup) {
	announcements := router.Group("/api/announcements")
	{
		announcements.GET("/active", middleware.RequireAuth(), h.ListActive)
		announcements.GET("", middleware.RequireRole("ADMIN"), h.List)
		announcements.POST("", middleware.RequireRole("ADMIN"), h.Create)
		announcements.DELETE("/:id", middleware.RequireRole("ADMIN"), h.Deactivate)
	}
}

// ListActive returns the org's currently visible banner, cache-backed
func (h *AnnouncementHandler) ListActive(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	active, err := h.announcementService.ListActive(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to load announcements"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, active))
}

func (h *AnnouncementHandler) List(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	announcements, total, err := h.announcementService.List(c.Request.Context(), orgID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list announcements"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, announcements, total, params.Page, params.Limit))
}

func (h *AnnouncementHandler) Create(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}

	var dto service.CreateAnnouncementDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	a, err := h.announcementService.Create(c.Request.Context(), orgID, dto, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, a))
}

func (h *AnnouncementHandler) Deactivate(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid announcement id"))
		return
	}

	if err := h.announcementService.Deactivate(c.Request.Context(), orgID, id, actor); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to deactivate announcement"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deactivated": true}))
}
