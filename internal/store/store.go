// Package store persists tasks and provides the conditional update primitive
// that every lifecycle transition is built on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Column names accepted in a Patch or Condition.
const (
	ColStatus            = "status"
	ColHighRiskCount     = "high_risk_count"
	ColMediumRiskCount   = "medium_risk_count"
	ColLowRiskCount      = "low_risk_count"
	ColAssessmentSummary = "assessment_summary"
	ColRawAssessment     = "raw_assessment"
	ColAIModel           = "ai_model"
	ColErrorMessage      = "error_message"
	ColProcessedAt       = "processed_at"
	ColReportStatus      = "report_status"
	ColReportArtifact    = "report_artifact"
	ColReportGeneratedAt = "report_generated_at"
	ColReportError       = "report_error"
	ColPaymentRef        = "payment_ref"
	ColPaymentAmount     = "payment_amount"
	ColPaidAt            = "paid_at"
	ColCreatedAt         = "created_at"
	ColUpdatedAt         = "updated_at"
)

// Patch is a set of column assignments applied by ConditionalUpdate.
type Patch map[string]interface{}

// Condition requires Field to currently hold one of Values.
type Condition struct {
	Field  string
	Values []interface{}
}

// Expect builds a Condition.
func Expect(field string, values ...interface{}) Condition {
	return Condition{Field: field, Values: values}
}

// TaskFilter narrows List results. Zero values mean no filter.
type TaskFilter struct {
	Page         int
	PageSize     int
	Status       models.TaskStatus
	ReportStatus models.ReportStatus
}

// TaskStore is the durable task record store.
type TaskStore interface {
	// InsertIfAbsent inserts task unless an active (non-FAILED) task with the same
	// submission ref exists, in which case that task is returned with inserted=false.
	InsertIfAbsent(ctx context.Context, task *models.Task) (*models.Task, bool, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	GetActiveBySubmission(ctx context.Context, submissionRef string) (*models.Task, error)
	// ConditionalUpdate applies patch only when every condition holds. ok is false when
	// the row is missing or a condition failed; it is never a partial write.
	ConditionalUpdate(ctx context.Context, id string, patch Patch, conds ...Condition) (bool, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	// FindStale returns tasks whose field is one of values and whose column is older than before.
	FindStale(ctx context.Context, cond Condition, column string, before time.Time, limit int) ([]models.Task, error)
}
