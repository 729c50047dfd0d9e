package questionnaire

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	router.POST("/questionnaires", h.SubmitAnswers)
}
