package assessment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openwork-hackathon/team-clawctor/internal/ai/aitest"
	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submission() *models.Submission {
	return &models.Submission{
		Ref: "S1",
		Sections: []models.SubmissionSection{
			{
				SectionKey: "data",
				Title:      "Data Encryption",
				Order:      2,
				Answers: []models.SubmissionAnswer{
					{QuestionCode: "DE-1", QuestionText: "Is data encrypted at rest?", AnswerJSON: json.RawMessage(`{"aes":256}`)},
					{QuestionCode: "DE-2", QuestionText: "Key rotation period?"},
				},
			},
			{
				SectionKey: "access",
				Title:      "Identity & Access",
				Order:      1,
				Answers: []models.SubmissionAnswer{
					{QuestionCode: "IA-1", QuestionText: "Is MFA enforced?", AnswerText: " No "},
				},
			},
		},
	}
}

const validReply = "```json\n" + `{
  "highRiskCount": 2,
  "mediumRiskCount": 3,
  "lowRiskCount": 5,
  "summary": "MFA is not enforced.",
  "risks": [{"level": "HIGH", "category": "Identity & Access", "description": "No MFA"}]
}` + "\n```"

func TestFormatSubmission(t *testing.T) {
	got := FormatSubmission(submission())

	want := "## Identity & Access\n\n" +
		"**IA-1**: Is MFA enforced?\nAnswer: No\n\n" +
		"## Data Encryption\n\n" +
		"**DE-1**: Is data encrypted at rest?\nAnswer: {\"aes\":256}\n\n" +
		"**DE-2**: Key rotation period?\nAnswer: No answer provided\n\n"
	assert.Equal(t, want, got)
}

func TestAssess_ParsesReply(t *testing.T) {
	srv := aitest.Static(t, validReply)
	client := NewClient(srv.Client("assessment-model"))

	result, err := client.Assess(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, models.RiskCounts{High: 2, Medium: 3, Low: 5}, result.Counts)
	assert.Equal(t, "MFA is not enforced.", result.Summary)
	assert.Equal(t, "assessment-model", result.Model)
	require.Len(t, result.Risks, 1)
	assert.Equal(t, "HIGH", result.Risks[0].Level)
	assert.True(t, json.Valid(result.Raw))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, SystemPrompt, reqs[0].Messages[0].Content)
	assert.Contains(t, reqs[0].Messages[1].Content, "**IA-1**: Is MFA enforced?")
}

func TestAssess_MalformedReplies(t *testing.T) {
	cases := map[string]string{
		"prose only":       "I'm unable to assess this questionnaire.",
		"missing counts":   `{"summary": "looks fine"}`,
		"negative count":   `{"highRiskCount": -1, "mediumRiskCount": 0, "lowRiskCount": 0, "summary": "x"}`,
		"string count":     `{"highRiskCount": "two", "mediumRiskCount": 0, "lowRiskCount": 0, "summary": "x"}`,
		"broken json":      `{"highRiskCount": 2, "mediumRiskCount": }`,
		"bad risk level":   `{"highRiskCount": 1, "mediumRiskCount": 0, "lowRiskCount": 0, "summary": "x", "risks": [{"level": "CRITICAL", "description": "d"}]}`,
		"summary not text": `{"highRiskCount": 1, "mediumRiskCount": 0, "lowRiskCount": 0, "summary": 4}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			client := NewClient(aitest.Static(t, content).Client("m"))

			_, err := client.Assess(context.Background(), submission())
			var ue *services.UpstreamError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, services.UpstreamMalformed, ue.Kind)
		})
	}
}

func TestAssess_EmptySubmission(t *testing.T) {
	srv := aitest.Static(t, validReply)
	client := NewClient(srv.Client("m"))

	_, err := client.Assess(context.Background(), &models.Submission{Ref: "S1"})
	var ue *services.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, services.UpstreamMalformed, ue.Kind)
	assert.Empty(t, srv.Requests())
}

func TestParse_KeepsValidatedObjectAsRaw(t *testing.T) {
	result, err := Parse(validReply)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Raw, &raw))
	assert.Equal(t, "MFA is not enforced.", raw["summary"])
}
