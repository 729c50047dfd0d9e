package report

import (
	"errors"
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/common"
	"github.com/openwork-hackathon/team-clawctor/internal/middleware"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	reports *services.ReportService
}

func NewHandler(reports *services.ReportService) *Handler {
	return &Handler{reports: reports}
}

// GenerateReport godoc
// @Summary Generate a report without payment (operations override)
// @Description Requires a COMPLETED assessment and renders synchronously. Payment is not checked.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Task ID"
// @Success 200 {object} utils.Response{data=services.ReportStatusView}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 502 {object} utils.Response{data=services.ReportStatusView}
// @Router /admin/tasks/{id}/generate-report [post]
func (h *Handler) GenerateReport(c *gin.Context) {
	taskID := c.Param("id")
	logger.ForTask(taskID).Info("Admin report generation requested",
		zap.String("admin", c.GetString(middleware.AdminSubjectKey)))

	view, err := h.reports.ManualGenerate(c.Request.Context(), taskID)
	if err != nil {
		var ue *services.UpstreamError
		if errors.As(err, &ue) && view != nil {
			common.WriteErrorWithData(c, err, view)
			return
		}
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Report generated", view))
}
