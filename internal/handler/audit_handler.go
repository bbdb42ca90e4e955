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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole("ADMIN")) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
		group.GET("/entity/:id", h.GetEntityHistory)
	}
}

// GetAuditLogs retrieves paginated audit records with actors preloaded
// @Summary      Get audit logs
// @Description  Retrieves the org's audit trail, optionally filtered by entity type
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_type  query     string  false  "request or approval"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), orgID, c.Query("entity_type"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, params.Page, params.Limit))
}

// GetEntityHistory returns the full trail for one request or approval
func (h *AuditHandler) GetEntityHistory(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid entity id"))
		return
	}

	logs, err := h.auditService.GetEntityHistory(c.Request.Context(), orgID, entityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve entity history"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
