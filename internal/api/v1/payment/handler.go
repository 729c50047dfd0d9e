package payment

import (
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/common"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	gate *services.PaymentGate
}

func NewHandler(gate *services.PaymentGate) *Handler {
	return &Handler{gate: gate}
}

// Authorize godoc
// @Summary Record a payment and start report generation
// @Description Accepted once per task while no report is generating or completed. Settlement
// @Description is not verified here.
// @Tags payment
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body AuthorizeRequest true "Payment"
// @Success 200 {object} utils.Response{data=AuthorizeResponse}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /tasks/{id}/payment [post]
func (h *Handler) Authorize(c *gin.Context) {
	var req AuthorizeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	taskID := c.Param("id")
	status, err := h.gate.Authorize(c.Request.Context(), taskID, req.PaymentRef, req.Amount)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Payment recorded, report generation started", AuthorizeResponse{
		TaskID:       taskID,
		ReportStatus: status,
	}))
}
