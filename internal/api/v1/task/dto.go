package task

import (
	"encoding/json"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

type AnswerRequest struct {
	QuestionCode string          `json:"question_code" binding:"required,max=128"`
	QuestionText string          `json:"question_text" binding:"max=4000"`
	AnswerText   string          `json:"answer_text" binding:"max=20000"`
	AnswerJSON   json.RawMessage `json:"answer_json"`
}

type SectionRequest struct {
	SectionKey string          `json:"section_key" binding:"required,max=128"`
	Title      string          `json:"title" binding:"max=512"`
	Order      int             `json:"order"`
	Answers    []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
}

type SubmissionRequest struct {
	QuestionnaireID string           `json:"questionnaire_id" binding:"max=128"`
	Sections        []SectionRequest `json:"sections" binding:"required,min=1,dive"`
}

type CreateTaskRequest struct {
	SubmissionRef string `json:"submission_ref" binding:"required,max=128"`
	// Idempotent returns an existing active task with 200 instead of failing with 409.
	Idempotent bool              `json:"idempotent"`
	Submission SubmissionRequest `json:"submission" binding:"required"`
}

func (r *CreateTaskRequest) toSubmission() *models.Submission {
	sub := &models.Submission{
		Ref:             r.SubmissionRef,
		QuestionnaireID: r.Submission.QuestionnaireID,
	}
	for _, s := range r.Submission.Sections {
		sec := models.SubmissionSection{SectionKey: s.SectionKey, Title: s.Title, Order: s.Order}
		for _, a := range s.Answers {
			sec.Answers = append(sec.Answers, models.SubmissionAnswer{
				QuestionCode: a.QuestionCode,
				QuestionText: a.QuestionText,
				AnswerText:   a.AnswerText,
				AnswerJSON:   a.AnswerJSON,
			})
		}
		sub.Sections = append(sub.Sections, sec)
	}
	return sub
}

type CreateTaskResponse struct {
	Task      *models.Task `json:"task"`
	AssetHash string       `json:"asset_hash"`
}

type ConflictResponse struct {
	TaskID string `json:"task_id"`
}

type TaskListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.Task `json:"items"`
}
