// Package common holds helpers shared by the v1 handlers.
package common

import (
	"errors"
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var ue *services.UpstreamError
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrPreconditionFailed):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrReportNotReady):
		return http.StatusNotFound
	case errors.As(err, &ue):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError writes the standard envelope for err. Internal errors are recorded on the gin
// context for the request logger and replaced with a generic message.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Internal server error"
	}
	c.JSON(status, utils.NewErrorResponse(status, msg))
}

// WriteErrorWithData is WriteError with a payload, e.g. the id of a conflicting task.
func WriteErrorWithData(c *gin.Context, err error, data interface{}) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		WriteError(c, err)
		return
	}
	c.JSON(status, utils.NewResponse(status, err.Error(), data))
}

// ParsePage reads page and page_size query parameters, leaving zero for absent values.
func ParsePage(c *gin.Context) (page, pageSize int, err error) {
	type query struct {
		Page     int `form:"page" binding:"omitempty,min=1"`
		PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
	}
	var q query
	if err := c.ShouldBindQuery(&q); err != nil {
		return 0, 0, services.ValidationError("pagination", err.Error())
	}
	return q.Page, q.PageSize, nil
}
