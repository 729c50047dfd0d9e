package health

import (
	"context"
	"net/http"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks map[string]Pinger
}

func NewHandler(checks map[string]Pinger) *Handler {
	return &Handler{checks: checks}
}

type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @Summary Liveness and dependency check
// @Tags health
// @Produce json
// @Success 200 {object} utils.Response{data=Status}
// @Failure 503 {object} utils.Response{data=Status}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	out := Status{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			out.Status = "degraded"
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}

	if out.Status != "ok" {
		utils.Respond(c, http.StatusServiceUnavailable, "unhealthy", out)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("ok", out))
}

func RegisterRoutes(router gin.IRoutes, h *Handler) {
	router.GET("/health", h.Health)
}
