package questionnaire

import (
	"encoding/json"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

// AnswerInput is one answered question, carrying its section inline.
type AnswerInput struct {
	SectionKey   string          `json:"section_key" binding:"required,max=128"`
	SectionTitle string          `json:"section_title" binding:"max=512"`
	QuestionCode string          `json:"question_code" binding:"required,max=128"`
	QuestionText string          `json:"question_text" binding:"max=4000"`
	AnswerText   string          `json:"answer_text" binding:"max=20000"`
	AnswerJSON   json.RawMessage `json:"answer_json"`
}

type SubmitRequest struct {
	QuestionnaireID string        `json:"questionnaire_id" binding:"required,max=128"`
	SubmissionRef   string        `json:"submission_ref" binding:"max=128"`
	Answers         []AnswerInput `json:"answers" binding:"required,min=1,dive"`
}

type SubmitResponse struct {
	TaskID        string            `json:"task_id"`
	SubmissionRef string            `json:"submission_ref"`
	Status        models.TaskStatus `json:"status"`
	AssetHash     string            `json:"asset_hash"`
}

// groupSections folds a flat answer list into sections, in first-seen order.
func groupSections(answers []AnswerInput) []models.SubmissionSection {
	index := make(map[string]int)
	var sections []models.SubmissionSection
	for _, a := range answers {
		i, ok := index[a.SectionKey]
		if !ok {
			i = len(sections)
			index[a.SectionKey] = i
			sections = append(sections, models.SubmissionSection{
				SectionKey: a.SectionKey,
				Title:      a.SectionTitle,
				Order:      i + 1,
			})
		}
		if sections[i].Title == "" {
			sections[i].Title = a.SectionTitle
		}
		sections[i].Answers = append(sections[i].Answers, models.SubmissionAnswer{
			QuestionCode: a.QuestionCode,
			QuestionText: a.QuestionText,
			AnswerText:   a.AnswerText,
			AnswerJSON:   a.AnswerJSON,
		})
	}
	return sections
}
