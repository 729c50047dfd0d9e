package report

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/tasks/:id/report-status", h.GetReportStatus)
	r.GET("/tasks/:id/report", h.GetReport)
}
