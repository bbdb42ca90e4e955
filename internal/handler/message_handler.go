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

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	messages := router.Group("/api/requests/:id/messages")
	messages.Use(middleware.RequireAuth())
	{
		messages.GET("", h.ListMessages)
		messages.POST("", h.PostMessage)
	}
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	params := pagination.Parse(c)
	messages, total, err := h.messageService.ListMessages(c.Request.Context(), orgID, requestID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list messages"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, messages, total, params.Page, params.Limit))
}

func (h *MessageHandler) PostMessage(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	var dto service.PostMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	msg, err := h.messageService.PostMessage(c.Request.Context(), orgID, requestID, dto.Body, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}
