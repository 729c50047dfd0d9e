package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/internal/worker"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

// ReportRenderer turns a completed assessment into a report artifact.
type ReportRenderer interface {
	Render(ctx context.Context, task *models.Task) (string, error)
}

// ReportStatusView is the pollable state of a task's report.
type ReportStatusView struct {
	TaskID            string              `json:"task_id"`
	ReportStatus      models.ReportStatus `json:"report_status"`
	ReportGeneratedAt *time.Time          `json:"report_generated_at,omitempty"`
	ReportError       string              `json:"report_error,omitempty"`
	HasArtifact       bool                `json:"has_artifact"`
}

func newReportStatusView(t *models.Task) *ReportStatusView {
	return &ReportStatusView{
		TaskID:            t.ID,
		ReportStatus:      t.ReportStatus,
		ReportGeneratedAt: t.ReportGeneratedAt,
		ReportError:       t.ReportError,
		HasArtifact:       t.HasArtifact(),
	}
}

// ReportService owns the report sub-machine: NOT_STARTED -> GENERATING -> COMPLETED | FAILED.
type ReportService struct {
	tasks      *TaskService
	store      store.TaskStore
	renderer   ReportRenderer
	dispatcher worker.Dispatcher
	timeout    time.Duration
	now        func() time.Time
}

func NewReportService(tasks *TaskService, s store.TaskStore, renderer ReportRenderer, dispatcher worker.Dispatcher, timeout time.Duration) *ReportService {
	return &ReportService{
		tasks:      tasks,
		store:      s,
		renderer:   renderer,
		dispatcher: dispatcher,
		timeout:    timeout,
		now:        time.Now,
	}
}

// StartAsync schedules rendering for a task already moved to GENERATING. If the job cannot be
// queued the episode is failed immediately.
func (s *ReportService) StartAsync(ctx context.Context, taskID string) error {
	err := s.dispatcher.Dispatch(ctx, worker.Job{Kind: worker.KindReport, TaskID: taskID})
	if err == nil {
		return nil
	}

	logger.ForTask(taskID).Warn("Failed to schedule report generation", zap.Error(err))
	if _, ferr := s.finishFailed(ctx, taskID, fmt.Sprintf("report generation could not be scheduled: %v", err)); ferr != nil {
		return fmt.Errorf("schedule report: %v; record failure: %w", err, ferr)
	}
	return nil
}

// Handle is the worker entry point for report jobs.
func (s *ReportService) Handle(ctx context.Context, job worker.Job) error {
	_, err := s.Generate(ctx, job.TaskID)
	return err
}

// Generate renders the report of a GENERATING task and records the outcome. It returns the
// resulting report status; for a task that is not GENERATING it does nothing.
func (s *ReportService) Generate(ctx context.Context, taskID string) (status models.ReportStatus, err error) {
	log := logger.ForTask(taskID)

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.ReportStatus != models.ReportStatusGenerating {
		log.Info("Report not generating, skipping", zap.String("report_status", string(task.ReportStatus)))
		return task.ReportStatus, nil
	}
	if task.Status != models.TaskStatusCompleted {
		return s.finishFailed(ctx, taskID, fmt.Sprintf("assessment is %s, not %s", task.Status, models.TaskStatusCompleted))
	}

	defer func() {
		if r := recover(); r != nil {
			ue := NewUpstreamError("render", UpstreamPanic, fmt.Errorf("%v", r))
			log.Error("Report rendering panicked", zap.Error(ue))
			status, err = s.finishFailed(ctx, taskID, ue.Error())
			if err == nil {
				err = ue
			}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	artifact, renderErr := s.renderer.Render(callCtx, task)
	if renderErr == nil && strings.TrimSpace(artifact) == "" {
		renderErr = NewUpstreamError("render", UpstreamEmpty, errors.New("renderer returned an empty artifact"))
	}
	if renderErr == nil && callCtx.Err() != nil {
		renderErr = NewUpstreamError("render", UpstreamTimeout, callCtx.Err())
	}
	if renderErr != nil {
		ue := AsUpstream("render", renderErr)
		log.Warn("Report generation failed", zap.String("kind", string(ue.Kind)), zap.Duration("elapsed", time.Since(start)), zap.Error(ue))
		status, err := s.finishFailed(ctx, taskID, ue.Error())
		if err != nil {
			return status, err
		}
		return status, ue
	}

	now := s.now()
	ok, err := s.store.ConditionalUpdate(context.WithoutCancel(ctx), taskID, store.Patch{
		store.ColReportStatus:      models.ReportStatusCompleted,
		store.ColReportArtifact:    artifact,
		store.ColReportGeneratedAt: now,
		store.ColReportError:       "",
	}, store.Expect(store.ColReportStatus, models.ReportStatusGenerating))
	if err != nil {
		log.Error("Failed to persist report", zap.Error(err))
		return "", fmt.Errorf("record report: %w", err)
	}
	if !ok {
		log.Info("Report result discarded, episode already terminal")
		return s.currentReportStatus(ctx, taskID)
	}

	log.Info("Report completed", zap.Int("bytes", len(artifact)), zap.Duration("elapsed", time.Since(start)))
	return models.ReportStatusCompleted, nil
}

// ManualGenerate is the administrative override: it requires a COMPLETED assessment but not a
// payment, and renders synchronously.
func (s *ReportService) ManualGenerate(ctx context.Context, taskID string) (*ReportStatusView, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: assessment is %s", ErrPreconditionFailed, task.Status)
	}
	if task.ReportStatus == models.ReportStatusGenerating || task.ReportStatus == models.ReportStatusCompleted {
		return nil, ErrReportInFlight
	}

	ok, err := s.store.ConditionalUpdate(ctx, taskID, store.Patch{
		store.ColReportStatus: models.ReportStatusGenerating,
		store.ColReportError:  "",
	},
		store.Expect(store.ColStatus, models.TaskStatusCompleted),
		store.Expect(store.ColReportStatus, models.ReportStatusNotStarted, models.ReportStatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("start manual report: %w", err)
	}
	if !ok {
		return nil, ErrReportInFlight
	}
	logger.ForTask(taskID).Info("Manual report generation started")

	_, genErr := s.Generate(ctx, taskID)
	view, err := s.GetStatus(context.WithoutCancel(ctx), taskID)
	if err != nil {
		return nil, err
	}
	return view, genErr
}

// GetStatus is a side-effect free read of the report sub-machine.
func (s *ReportService) GetStatus(ctx context.Context, taskID string) (*ReportStatusView, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return newReportStatusView(task), nil
}

// FetchArtifact returns the rendered report, or ErrReportNotReady unless it is COMPLETED.
func (s *ReportService) FetchArtifact(ctx context.Context, taskID string) (string, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	if !task.HasArtifact() {
		return "", fmt.Errorf("%w: report is %s", ErrReportNotReady, task.ReportStatus)
	}
	return task.ReportArtifact, nil
}

// finishFailed moves a GENERATING episode to FAILED.
func (s *ReportService) finishFailed(ctx context.Context, taskID, msg string) (models.ReportStatus, error) {
	ok, err := s.store.ConditionalUpdate(context.WithoutCancel(ctx), taskID, store.Patch{
		store.ColReportStatus: models.ReportStatusFailed,
		store.ColReportError:  truncate(msg, maxErrorLength),
	}, store.Expect(store.ColReportStatus, models.ReportStatusGenerating))
	if err != nil {
		logger.ForTask(taskID).Error("Failed to persist report failure", zap.Error(err))
		return "", fmt.Errorf("record report failure: %w", err)
	}
	if !ok {
		return s.currentReportStatus(ctx, taskID)
	}
	logger.ForTask(taskID).Info("Report transition", zap.String("to", string(models.ReportStatusFailed)))
	return models.ReportStatusFailed, nil
}

func (s *ReportService) currentReportStatus(ctx context.Context, taskID string) (models.ReportStatus, error) {
	task, err := s.tasks.Get(context.WithoutCancel(ctx), taskID)
	if err != nil {
		return "", err
	}
	return task.ReportStatus, nil
}
