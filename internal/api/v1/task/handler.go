package task

import (
	"errors"
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/common"
	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	tasks       *services.TaskService
	submissions *services.SubmissionService
}

func NewHandler(tasks *services.TaskService, submissions *services.SubmissionService) *Handler {
	return &Handler{tasks: tasks, submissions: submissions}
}

// SubmitTask godoc
// @Summary Submit a questionnaire for assessment
// @Description Creates a PENDING task and schedules the AI assessment. A duplicate active
// @Description submission is a 409 unless idempotent is set.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "Task creation request"
// @Success 201 {object} utils.Response{data=CreateTaskResponse}
// @Success 200 {object} utils.Response{data=CreateTaskResponse}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response{data=ConflictResponse}
// @Router /tasks [post]
func (h *Handler) SubmitTask(c *gin.Context) {
	var req CreateTaskRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.submissions.Submit(c.Request.Context(), req.toSubmission(), !req.Idempotent)
	if err != nil {
		if errors.Is(err, services.ErrTaskExists) && res != nil {
			common.WriteErrorWithData(c, err, ConflictResponse{TaskID: res.Task.ID})
			return
		}
		common.WriteError(c, err)
		return
	}

	body := CreateTaskResponse{Task: res.Task, AssetHash: res.AssetHash}
	if !res.Created {
		utils.Respond(c, http.StatusOK, "Task already exists", body)
		return
	}
	utils.Respond(c, http.StatusCreated, "Task submitted successfully", body)
}

// ListTasks godoc
// @Summary List tasks
// @Description List tasks with pagination and filtering, newest first
// @Tags tasks
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param status query string false "Assessment status"
// @Param report_status query string false "Report status"
// @Success 200 {object} utils.Response{data=TaskListResponse}
// @Failure 400 {object} utils.Response
// @Router /tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	page, pageSize, err := common.ParsePage(c)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	filter := store.TaskFilter{
		Page:         page,
		PageSize:     pageSize,
		Status:       models.TaskStatus(c.Query("status")),
		ReportStatus: models.ReportStatus(c.Query("report_status")),
	}
	tasks, total, err := h.tasks.List(c.Request.Context(), filter)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", TaskListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    tasks,
	}))
}

// GetTaskDetail godoc
// @Summary Get task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} utils.Response{data=models.Task}
// @Failure 404 {object} utils.Response
// @Router /tasks/{id} [get]
func (h *Handler) GetTaskDetail(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", task))
}

// GetTaskBySubmission godoc
// @Summary Get the active task for a submission
// @Tags tasks
// @Produce json
// @Param ref path string true "Submission reference"
// @Success 200 {object} utils.Response{data=models.Task}
// @Failure 404 {object} utils.Response
// @Router /tasks/by-submission/{ref} [get]
func (h *Handler) GetTaskBySubmission(c *gin.Context) {
	task, err := h.tasks.GetBySubmission(c.Request.Context(), c.Param("ref"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", task))
}
