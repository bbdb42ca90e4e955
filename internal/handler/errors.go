package handler

import (
	"errors"
	"net/http"

	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// handleDomainError translates the workflow's typed outcomes to HTTP
// responses. Returns false when err is not a domain error, leaving the
// caller to report it as a validation or infrastructure failure — domain
// and infrastructure errors must never be conflated.
func handleDomainError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, workflow.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrAlreadyDecided),
		errors.Is(err, workflow.ErrInvalidated),
		errors.Is(err, workflow.ErrResubmitNotAllowed),
		errors.Is(err, workflow.ErrVersionConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		return false
	}
	return true
}
