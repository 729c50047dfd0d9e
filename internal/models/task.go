package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus is the assessment state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further assessment transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ReportStatus is the state of the paid report sub-machine.
type ReportStatus string

const (
	ReportStatusNotStarted ReportStatus = "NOT_STARTED"
	ReportStatusGenerating ReportStatus = "GENERATING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusNotStarted, ReportStatusGenerating, ReportStatusCompleted, ReportStatusFailed:
		return true
	}
	return false
}

// RiskCounts is the number of findings per severity.
type RiskCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Task tracks one questionnaire submission through assessment and report generation.
type Task struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubmissionRef string     `gorm:"type:varchar(128);not null;index:idx_tasks_active_submission,unique,where:status <> 'FAILED'" json:"submission_ref"`
	Status        TaskStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	HighRiskCount     int            `gorm:"not null;default:0" json:"high_risk_count"`
	MediumRiskCount   int            `gorm:"not null;default:0" json:"medium_risk_count"`
	LowRiskCount      int            `gorm:"not null;default:0" json:"low_risk_count"`
	AssessmentSummary string         `gorm:"type:text" json:"assessment_summary"`
	RawAssessment     datatypes.JSON `json:"raw_assessment,omitempty"`
	AIModel           string         `gorm:"type:varchar(128)" json:"ai_model,omitempty"`
	ErrorMessage      string         `gorm:"type:text" json:"error_message,omitempty"`

	ReportStatus      ReportStatus `gorm:"type:varchar(16);not null;default:'NOT_STARTED';index" json:"report_status"`
	ReportArtifact    string       `gorm:"type:text" json:"-"`
	ReportGeneratedAt *time.Time   `json:"report_generated_at,omitempty"`
	ReportError       string       `gorm:"type:text" json:"report_error,omitempty"`

	PaymentRef    string     `gorm:"type:varchar(256);not null;default:''" json:"payment_ref,omitempty"`
	PaymentAmount float64    `json:"payment_amount,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Task) TableName() string {
	return "tasks"
}

// Counts returns the persisted risk counts.
func (t *Task) Counts() RiskCounts {
	return RiskCounts{High: t.HighRiskCount, Medium: t.MediumRiskCount, Low: t.LowRiskCount}
}

// HasArtifact reports whether a rendered report is stored.
func (t *Task) HasArtifact() bool {
	return t.ReportStatus == ReportStatusCompleted && t.ReportArtifact != ""
}

// Paid reports whether a payment has been recorded.
func (t *Task) Paid() bool {
	return t.PaymentRef != ""
}
