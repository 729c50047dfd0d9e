package api

import (
	"time"

	"github.com/openwork-hackathon/team-clawctor/config"
	adminReport "github.com/openwork-hackathon/team-clawctor/internal/api/v1/admin/report"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/health"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/payment"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/questionnaire"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/report"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/task"
	"github.com/openwork-hackathon/team-clawctor/internal/middleware"
	"github.com/openwork-hackathon/team-clawctor/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	Tasks       *services.TaskService
	Submissions *services.SubmissionService
	Gate        *services.PaymentGate
	Reports     *services.ReportService
	// Health checks, keyed by dependency name.
	Checks map[string]health.Pinger
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	health.RegisterRoutes(router, health.NewHandler(deps.Checks))

	// API v1
	v1 := router.Group("/api/v1")
	{
		task.RegisterRoutes(v1, task.NewHandler(deps.Tasks, deps.Submissions))
		questionnaire.RegisterRoutes(v1, questionnaire.NewHandler(deps.Submissions))
		payment.RegisterRoutes(v1, payment.NewHandler(deps.Gate))
		report.RegisterRoutes(v1, report.NewHandler(deps.Reports))

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(cfg.JWTSecret))
		{
			adminReport.RegisterRoutes(admin, adminReport.NewHandler(deps.Reports))
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           5 * time.Minute,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		// Wildcard origins cannot carry credentials.
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = origins
	return c
}
