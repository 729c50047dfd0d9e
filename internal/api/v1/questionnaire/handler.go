package questionnaire

import (
	"errors"
	"net/http"
	"strings"

	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/common"
	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	submissions *services.SubmissionService
}

func NewHandler(submissions *services.SubmissionService) *Handler {
	return &Handler{submissions: submissions}
}

// SubmitAnswers godoc
// @Summary Submit questionnaire answers
// @Description Groups a flat answer list into sections and creates a task for it. Without a
// @Description submission_ref a fresh one is assigned, so every call is a new submission.
// @Tags questionnaires
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Answers"
// @Success 201 {object} utils.Response{data=SubmitResponse}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /questionnaires [post]
func (h *Handler) SubmitAnswers(c *gin.Context) {
	var req SubmitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ref := strings.TrimSpace(req.SubmissionRef)
	if ref == "" {
		ref = uuid.New().String()
	}
	sub := &models.Submission{
		Ref:             ref,
		QuestionnaireID: req.QuestionnaireID,
		Sections:        groupSections(req.Answers),
	}

	res, err := h.submissions.Submit(c.Request.Context(), sub, true)
	if err != nil {
		if errors.Is(err, services.ErrTaskExists) && res != nil {
			common.WriteErrorWithData(c, err, SubmitResponse{
				TaskID:        res.Task.ID,
				SubmissionRef: ref,
				Status:        res.Task.Status,
			})
			return
		}
		common.WriteError(c, err)
		return
	}

	utils.Respond(c, http.StatusCreated, "Questionnaire submitted successfully", SubmitResponse{
		TaskID:        res.Task.ID,
		SubmissionRef: ref,
		Status:        res.Task.Status,
		AssetHash:     res.AssetHash,
	})
}
