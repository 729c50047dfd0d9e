package models

import "encoding/json"

// Submission is a completed questionnaire handed to the assessment pipeline.
// It is not persisted by this service.
type Submission struct {
	Ref             string              `json:"submission_ref"`
	QuestionnaireID string              `json:"questionnaire_id,omitempty"`
	Sections        []SubmissionSection `json:"sections"`
}

type SubmissionSection struct {
	SectionKey string             `json:"section_key"`
	Title      string             `json:"title"`
	Order      int                `json:"order"`
	Answers    []SubmissionAnswer `json:"answers"`
}

type SubmissionAnswer struct {
	QuestionCode string          `json:"question_code"`
	QuestionText string          `json:"question_text"`
	AnswerText   string          `json:"answer_text,omitempty"`
	AnswerJSON   json.RawMessage `json:"answer_json,omitempty"`
}

// AnswerCount returns the total number of answers across all sections.
func (s *Submission) AnswerCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Answers)
	}
	return n
}
