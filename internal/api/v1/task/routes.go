package task

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	tasks := router.Group("/tasks")
	{
		tasks.POST("", h.SubmitTask)
		tasks.GET("", h.ListTasks)
		tasks.GET("/by-submission/:ref", h.GetTaskBySubmission)
		tasks.GET("/:id", h.GetTaskDetail)
	}
}
