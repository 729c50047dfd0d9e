package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxErrorLength = 2000

// assessmentEdges lists every permitted assessment transition.
var assessmentEdges = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusPending:    {models.TaskStatusProcessing, models.TaskStatusFailed},
	models.TaskStatusProcessing: {models.TaskStatusCompleted, models.TaskStatusFailed},
}

// AssessmentPayload carries the outcome written with a terminal transition.
type AssessmentPayload struct {
	Result       *models.AssessmentResult
	ErrorMessage string
}

// TaskService owns task creation and the assessment state machine.
type TaskService struct {
	store store.TaskStore
	now   func() time.Time
}

func NewTaskService(s store.TaskStore) *TaskService {
	return &TaskService{store: s, now: time.Now}
}

// Create inserts a PENDING task for submissionRef unless an active one exists.
// In strict mode an existing task is returned together with ErrTaskExists.
func (s *TaskService) Create(ctx context.Context, submissionRef string, strict bool) (*models.Task, bool, error) {
	ref := strings.TrimSpace(submissionRef)
	if ref == "" {
		return nil, false, ValidationError("submission_ref", "is required")
	}

	task := &models.Task{
		ID:            uuid.New().String(),
		SubmissionRef: ref,
		Status:        models.TaskStatusPending,
		ReportStatus:  models.ReportStatusNotStarted,
		CreatedAt:     s.now(),
	}

	got, inserted, err := s.store.InsertIfAbsent(ctx, task)
	if err != nil {
		return nil, false, fmt.Errorf("create task: %w", err)
	}
	if !inserted {
		logger.ForTask(got.ID).Info("Active task already exists for submission",
			zap.String("submission_ref", ref), zap.Bool("strict", strict))
		if strict {
			return got, false, ErrTaskExists
		}
		return got, false, nil
	}

	logger.ForTask(got.ID).Info("Task created", zap.String("submission_ref", ref))
	return got, true, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return task, nil
}

// GetBySubmission returns the active task for a submission.
func (s *TaskService) GetBySubmission(ctx context.Context, submissionRef string) (*models.Task, error) {
	task, err := s.store.GetActiveBySubmission(ctx, submissionRef)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, filter store.TaskFilter) ([]models.Task, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ValidationError("status", "is not a task status")
	}
	if filter.ReportStatus != "" && !filter.ReportStatus.Valid() {
		return nil, 0, ValidationError("report_status", "is not a report status")
	}
	return s.store.List(ctx, filter)
}

// TransitionAssessment moves the task from one assessment state to another. It is the only
// write path for task status and applies only if the stored status still equals from.
func (s *TaskService) TransitionAssessment(ctx context.Context, id string, from, to models.TaskStatus, payload AssessmentPayload) error {
	if !allowedEdge(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	patch := store.Patch{store.ColStatus: to}
	switch to {
	case models.TaskStatusCompleted:
		res := payload.Result
		if res == nil {
			return fmt.Errorf("%w: completion without a result", ErrInvalidTransition)
		}
		if res.Counts.High < 0 || res.Counts.Medium < 0 || res.Counts.Low < 0 {
			return fmt.Errorf("%w: negative risk counts", ErrInvalidTransition)
		}
		patch[store.ColHighRiskCount] = res.Counts.High
		patch[store.ColMediumRiskCount] = res.Counts.Medium
		patch[store.ColLowRiskCount] = res.Counts.Low
		patch[store.ColAssessmentSummary] = res.Summary
		patch[store.ColRawAssessment] = datatypes.JSON(res.Raw)
		patch[store.ColAIModel] = res.Model
		patch[store.ColErrorMessage] = ""
		patch[store.ColProcessedAt] = s.now()
	case models.TaskStatusFailed:
		msg := strings.TrimSpace(payload.ErrorMessage)
		if msg == "" {
			msg = "assessment failed"
		}
		patch[store.ColErrorMessage] = truncate(msg, maxErrorLength)
		patch[store.ColProcessedAt] = s.now()
	}

	ok, err := s.store.ConditionalUpdate(ctx, id, patch, store.Expect(store.ColStatus, from))
	if err != nil {
		logger.ForTask(id).Error("Failed to persist assessment transition",
			zap.String("from", string(from)), zap.String("to", string(to)), zap.Error(err))
		return fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	if !ok {
		if _, err := s.store.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		logger.ForTask(id).Debug("Stale assessment transition",
			zap.String("from", string(from)), zap.String("to", string(to)))
		return ErrStaleTransition
	}

	logger.ForTask(id).Info("Assessment transition",
		zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

func allowedEdge(from, to models.TaskStatus) bool {
	for _, next := range assessmentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func translateStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "...(truncated)"
}
