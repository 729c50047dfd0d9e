package report

import (
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/common"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reports *services.ReportService
}

func NewHandler(reports *services.ReportService) *Handler {
	return &Handler{reports: reports}
}

// GetReportStatus godoc
// @Summary Poll report generation
// @Tags reports
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} utils.Response{data=services.ReportStatusView}
// @Failure 404 {object} utils.Response
// @Router /tasks/{id}/report-status [get]
func (h *Handler) GetReportStatus(c *gin.Context) {
	view, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", view))
}

// GetReport godoc
// @Summary Download the rendered report
// @Tags reports
// @Produce html
// @Param id path string true "Task ID"
// @Success 200 {string} string "HTML document"
// @Failure 404 {object} utils.Response
// @Router /tasks/{id}/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	artifact, err := h.reports.FetchArtifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(artifact))
}
