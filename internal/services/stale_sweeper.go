package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

// StaleSweeper fails tasks whose worker disappeared, for example across a process restart.
// Its threshold must exceed the job timeouts so it never overtakes a live worker.
type StaleSweeper struct {
	tasks     *TaskService
	store     store.TaskStore
	threshold time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

func NewStaleSweeper(tasks *TaskService, s store.TaskStore, threshold time.Duration) *StaleSweeper {
	return &StaleSweeper{
		tasks:     tasks,
		store:     s,
		threshold: threshold,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start schedules Sweep on a cron schedule, e.g. "@every 1m".
func (s *StaleSweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			logger.Log.Error("Stale task sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	logger.Log.Info("Stale task sweeper started", zap.String("schedule", schedule), zap.Duration("threshold", s.threshold))
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *StaleSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep fails stalled assessments and report episodes once and returns how many it moved.
func (s *StaleSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.threshold)
	moved := 0

	// PENDING ages from creation; PROCESSING from the claim that stamped updated_at, so queue
	// wait never counts against a worker that is still inside its timeout.
	for _, q := range []struct {
		status models.TaskStatus
		column string
	}{
		{models.TaskStatusPending, store.ColCreatedAt},
		{models.TaskStatusProcessing, store.ColUpdatedAt},
	} {
		stalled, err := s.store.FindStale(ctx, store.Expect(store.ColStatus, q.status), q.column, cutoff, sweepBatchSize)
		if err != nil {
			return moved, err
		}
		for _, t := range stalled {
			msg := fmt.Sprintf("assessment did not finish within %s", s.threshold)
			err := s.tasks.TransitionAssessment(ctx, t.ID, q.status, models.TaskStatusFailed, AssessmentPayload{ErrorMessage: msg})
			switch {
			case err == nil:
				moved++
			case errors.Is(err, ErrStaleTransition):
			default:
				logger.ForTask(t.ID).Error("Failed to fail stalled assessment", zap.Error(err))
			}
		}
	}

	generating, err := s.store.FindStale(ctx,
		store.Expect(store.ColReportStatus, models.ReportStatusGenerating),
		store.ColUpdatedAt, cutoff, sweepBatchSize)
	if err != nil {
		return moved, err
	}
	for _, t := range generating {
		ok, err := s.store.ConditionalUpdate(ctx, t.ID, store.Patch{
			store.ColReportStatus: models.ReportStatusFailed,
			store.ColReportError:  fmt.Sprintf("report generation did not finish within %s", s.threshold),
		}, store.Expect(store.ColReportStatus, models.ReportStatusGenerating))
		if err != nil {
			logger.ForTask(t.ID).Error("Failed to fail stalled report", zap.Error(err))
			continue
		}
		if ok {
			moved++
		}
	}

	if moved > 0 {
		logger.Log.Warn("Failed stalled tasks", zap.Int("count", moved))
	}
	return moved, nil
}
