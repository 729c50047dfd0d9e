package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/worker"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

// AssessmentClient evaluates a submission. Failures should be *UpstreamError; any other
// error is treated as a transport failure.
type AssessmentClient interface {
	Assess(ctx context.Context, sub *models.Submission) (*models.AssessmentResult, error)
}

// AssessmentOrchestrator runs the AI assessment in the background and converges each task to
// COMPLETED or FAILED exactly once.
type AssessmentOrchestrator struct {
	tasks      *TaskService
	client     AssessmentClient
	dispatcher worker.Dispatcher
	timeout    time.Duration
}

func NewAssessmentOrchestrator(tasks *TaskService, client AssessmentClient, dispatcher worker.Dispatcher, timeout time.Duration) *AssessmentOrchestrator {
	return &AssessmentOrchestrator{
		tasks:      tasks,
		client:     client,
		dispatcher: dispatcher,
		timeout:    timeout,
	}
}

// RunAsync schedules the assessment of taskID. If the job cannot be queued the task is
// failed immediately so it never sits in PENDING without a worker.
func (o *AssessmentOrchestrator) RunAsync(ctx context.Context, taskID string, sub *models.Submission) error {
	err := o.dispatcher.Dispatch(ctx, worker.Job{Kind: worker.KindAssessment, TaskID: taskID, Submission: sub})
	if err == nil {
		return nil
	}

	logger.ForTask(taskID).Warn("Failed to schedule assessment", zap.Error(err))
	msg := fmt.Sprintf("assessment could not be scheduled: %v", err)
	if terr := o.tasks.TransitionAssessment(context.WithoutCancel(ctx), taskID, models.TaskStatusPending, models.TaskStatusFailed,
		AssessmentPayload{ErrorMessage: msg}); terr != nil && !errors.Is(terr, ErrStaleTransition) {
		return fmt.Errorf("schedule assessment: %v; record failure: %w", err, terr)
	}
	return nil
}

// Handle is the worker entry point for assessment jobs.
func (o *AssessmentOrchestrator) Handle(ctx context.Context, job worker.Job) error {
	if job.Submission == nil {
		return o.fail(ctx, job.TaskID, models.TaskStatusPending, "assessment job carried no submission")
	}
	return o.Run(ctx, job.TaskID, job.Submission)
}

// Run performs the assessment synchronously. A caller that loses the PENDING -> PROCESSING
// race returns nil without contacting the assessment provider.
func (o *AssessmentOrchestrator) Run(ctx context.Context, taskID string, sub *models.Submission) (err error) {
	log := logger.ForTask(taskID)

	if err := o.tasks.TransitionAssessment(ctx, taskID, models.TaskStatusPending, models.TaskStatusProcessing, AssessmentPayload{}); err != nil {
		if errors.Is(err, ErrStaleTransition) {
			log.Info("Assessment already claimed, skipping")
			return nil
		}
		return err
	}

	// From here on the task is PROCESSING and this goroutine owns its terminal write.
	defer func() {
		if r := recover(); r != nil {
			ue := NewUpstreamError("assess", UpstreamPanic, fmt.Errorf("%v", r))
			log.Error("Assessment panicked", zap.Error(ue))
			err = o.fail(ctx, taskID, models.TaskStatusProcessing, ue.Error())
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	result, callErr := o.client.Assess(callCtx, sub)
	if callErr == nil && result == nil {
		callErr = NewUpstreamError("assess", UpstreamEmpty, errors.New("no result"))
	}
	if callErr == nil && callCtx.Err() != nil {
		callErr = NewUpstreamError("assess", UpstreamTimeout, callCtx.Err())
	}
	if callErr != nil {
		ue := AsUpstream("assess", callErr)
		log.Warn("Assessment failed", zap.String("kind", string(ue.Kind)), zap.Duration("elapsed", time.Since(start)), zap.Error(ue))
		return o.fail(ctx, taskID, models.TaskStatusProcessing, ue.Error())
	}

	err = o.tasks.TransitionAssessment(context.WithoutCancel(ctx), taskID, models.TaskStatusProcessing, models.TaskStatusCompleted,
		AssessmentPayload{Result: result})
	if errors.Is(err, ErrStaleTransition) {
		log.Info("Assessment result discarded, task already terminal")
		return nil
	}
	if errors.Is(err, ErrInvalidTransition) {
		return o.fail(ctx, taskID, models.TaskStatusProcessing, err.Error())
	}
	if err == nil {
		log.Info("Assessment completed",
			zap.Int("high", result.Counts.High), zap.Int("medium", result.Counts.Medium), zap.Int("low", result.Counts.Low),
			zap.Duration("elapsed", time.Since(start)))
	}
	return err
}

// fail records a FAILED outcome. The write uses a context detached from cancellation so a
// shutdown or expired job deadline cannot leave the task without an outcome.
func (o *AssessmentOrchestrator) fail(ctx context.Context, taskID string, from models.TaskStatus, msg string) error {
	err := o.tasks.TransitionAssessment(context.WithoutCancel(ctx), taskID, from, models.TaskStatusFailed, AssessmentPayload{ErrorMessage: msg})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	return err
}
