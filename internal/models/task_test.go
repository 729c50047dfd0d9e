package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TaskStatus("DONE").Valid())
	assert.False(t, TaskStatus("").Valid())

	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
}

func TestReportStatus_Valid(t *testing.T) {
	assert.True(t, ReportStatusNotStarted.Valid())
	assert.True(t, ReportStatusGenerating.Valid())
	assert.False(t, ReportStatus("PAID").Valid())
}

func TestTask_Derived(t *testing.T) {
	task := &Task{HighRiskCount: 2, MediumRiskCount: 3, LowRiskCount: 5}
	assert.Equal(t, RiskCounts{High: 2, Medium: 3, Low: 5}, task.Counts())
	assert.False(t, task.Paid())
	assert.False(t, task.HasArtifact())

	task.ReportArtifact = "<html></html>"
	task.ReportStatus = ReportStatusGenerating
	assert.False(t, task.HasArtifact(), "artifact only counts once the report completed")
	task.ReportStatus = ReportStatusCompleted
	assert.True(t, task.HasArtifact())

	task.PaymentRef = "0xabc"
	assert.True(t, task.Paid())
}

func TestSubmission_AnswerCount(t *testing.T) {
	sub := &Submission{Sections: []SubmissionSection{
		{SectionKey: "a", Answers: []SubmissionAnswer{{QuestionCode: "A-1"}, {QuestionCode: "A-2"}}},
		{SectionKey: "b"},
		{SectionKey: "c", Answers: []SubmissionAnswer{{QuestionCode: "C-1"}}},
	}}
	assert.Equal(t, 3, sub.AnswerCount())
}
