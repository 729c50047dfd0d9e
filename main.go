package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openwork-hackathon/team-clawctor/config"
	"github.com/openwork-hackathon/team-clawctor/internal/ai"
	"github.com/openwork-hackathon/team-clawctor/internal/api"
	"github.com/openwork-hackathon/team-clawctor/internal/api/v1/health"
	"github.com/openwork-hackathon/team-clawctor/internal/assessment"
	"github.com/openwork-hackathon/team-clawctor/internal/database"
	"github.com/openwork-hackathon/team-clawctor/internal/report"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/internal/worker"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

// @title team-clawctor API
// @version 1.0
// @description AI risk assessment and paid report generation for security questionnaires.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

// queue is the job backend the services dispatch to.
type queue interface {
	worker.Dispatcher
	Start(n int)
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Fatal("Failed to get database handle", zap.Error(err))
	}
	checks := map[string]health.Pinger{"database": health.PingFunc(sqlDB.PingContext)}

	registry := worker.NewRegistry()
	var jobs queue
	if cfg.QueueBackend == "redis" {
		rdb, err := database.ConnectRedis(context.Background(), cfg)
		if err != nil {
			logger.Log.Fatal("Failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		jobs = worker.NewRedisQueue(rdb, cfg.QueueKey, registry.Handle)
	} else {
		jobs = worker.NewPool(cfg.QueueSize, registry.Handle)
	}

	aiConfig := func(model string, timeout time.Duration) ai.Config {
		return ai.Config{
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AIBaseURL,
			Model:       model,
			Temperature: cfg.AITemperature,
			Timeout:     timeout,
		}
	}

	taskStore := store.NewGormTaskStore(db)
	tasks := services.NewTaskService(taskStore)
	orchestrator := services.NewAssessmentOrchestrator(tasks,
		assessment.NewClient(ai.NewClient(aiConfig(cfg.AIAssessmentModel, cfg.AssessmentTimeout))),
		jobs, cfg.AssessmentTimeout)
	reports := services.NewReportService(tasks, taskStore,
		report.NewRenderer(report.NewDetailGenerator(ai.NewClient(aiConfig(cfg.AIReportModel, cfg.ReportTimeout)))),
		jobs, cfg.ReportTimeout)
	gate := services.NewPaymentGate(tasks, taskStore, reports)

	registry.Register(worker.KindAssessment, orchestrator.Handle)
	registry.Register(worker.KindReport, reports.Handle)
	jobs.Start(cfg.WorkerCount)

	sweeper := services.NewStaleSweeper(tasks, taskStore, cfg.StallThreshold)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Log.Fatal("Failed to start stale sweeper", zap.Error(err))
	}

	router := api.NewRouter(cfg, api.Deps{
		Tasks:       tasks,
		Submissions: services.NewSubmissionService(tasks, orchestrator, services.NewAssetHasher()),
		Gate:        gate,
		Reports:     reports,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", srv.Addr),
			zap.String("queue", cfg.QueueBackend), zap.Int("workers", cfg.WorkerCount))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
	sweeper.Stop()
	// In-flight jobs finish within their own timeouts; anything left is reclaimed by the sweeper.
	if err := jobs.Shutdown(ctx); err != nil {
		logger.Log.Warn("Job queue did not drain", zap.Error(err))
	}
}
