package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

// SubmitResult is the outcome of accepting a questionnaire submission.
type SubmitResult struct {
	Task      *models.Task `json:"task"`
	AssetHash string       `json:"asset_hash"`
	Created   bool         `json:"created"`
}

// SubmissionService is the intake path: fingerprint, create-or-get, then schedule assessment.
type SubmissionService struct {
	tasks        *TaskService
	orchestrator *AssessmentOrchestrator
	hasher       *AssetHasher
}

func NewSubmissionService(tasks *TaskService, orchestrator *AssessmentOrchestrator, hasher *AssetHasher) *SubmissionService {
	return &SubmissionService{tasks: tasks, orchestrator: orchestrator, hasher: hasher}
}

// Submit creates a task for sub and schedules its assessment. Only the call that actually
// created the task schedules work. In strict mode a duplicate returns the existing task with
// ErrTaskExists.
func (s *SubmissionService) Submit(ctx context.Context, sub *models.Submission, strict bool) (*SubmitResult, error) {
	if sub == nil {
		return nil, ValidationError("submission", "is required")
	}
	sub.Ref = strings.TrimSpace(sub.Ref)
	if sub.AnswerCount() == 0 {
		return nil, ValidationError("submission", "has no answers")
	}

	hash, err := s.hasher.Hash(sub)
	if err != nil {
		return nil, err
	}

	task, created, err := s.tasks.Create(ctx, sub.Ref, strict)
	if err != nil {
		if task != nil {
			return &SubmitResult{Task: task, AssetHash: hash}, err
		}
		return nil, err
	}
	result := &SubmitResult{Task: task, AssetHash: hash, Created: created}
	if !created {
		return result, nil
	}

	if err := s.orchestrator.RunAsync(ctx, task.ID, sub); err != nil {
		logger.ForTask(task.ID).Error("Failed to start assessment", zap.Error(err))
		return result, fmt.Errorf("start assessment: %w", err)
	}
	return result, nil
}
