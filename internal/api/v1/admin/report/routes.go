package report

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	router.POST("/tasks/:id/generate-report", h.GenerateReport)
}
