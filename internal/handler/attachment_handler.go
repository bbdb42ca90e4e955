package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 25 MB upload cap
const maxAttachmentSize = 25 << 20

type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

func NewAttachmentHandler(attachmentService service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

func (h *AttachmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/requests/:id/attachments", middleware.RequireAuth(), h.Upload)
	router.GET("/api/requests/:id/attachments", middleware.RequireAuth(), h.ListByRequest)
	router.GET("/api/attachments/:id/url", middleware.RequireAuth(), h.PresignURL)
}

// Upload stores a multipart file for the request
func (h *AttachmentHandler) Upload(c *gin.Context) {
	orgID, actor, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file is required"))
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file exceeds the 25MB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read file"))
		return
	}
	defer file.Close()

	att, err := h.attachmentService.Upload(
		c.Request.Context(),
		orgID, requestID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
		actor,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, att))
}

func (h *AttachmentHandler) ListByRequest(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request id"))
		return
	}

	attachments, err := h.attachmentService.ListByRequest(c.Request.Context(), orgID, requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list attachments"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, attachments))
}

// PresignURL returns a short-lived download link for the attachment
func (h *AttachmentHandler) PresignURL(c *gin.Context) {
	orgID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid attachment id"))
		return
	}

	url, err := h.attachmentService.PresignURL(c.Request.Context(), orgID, id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "attachment not found"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"url": url}))
}
