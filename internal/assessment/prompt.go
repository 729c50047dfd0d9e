package assessment

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

const (
	SystemPrompt = `You are a security risk assessment expert. Analyze the following security questionnaire responses and identify potential risks.

For each identified risk, categorize it as:
- HIGH RISK: Critical security vulnerabilities, missing essential controls, or practices that could lead to immediate security breaches
- MEDIUM RISK: Significant gaps in security practices that should be addressed but don't pose immediate threats
- LOW RISK: Minor improvements needed or best practices not fully implemented

Respond in the following JSON format only:
{
  "highRiskCount": <number>,
  "mediumRiskCount": <number>,
  "lowRiskCount": <number>,
  "summary": "<brief 2-3 sentence summary of the overall security posture>",
  "risks": [
    {
      "level": "HIGH|MEDIUM|LOW",
      "category": "<security category>",
      "description": "<brief description of the risk>"
    }
  ]
}`

	userPromptHeader = "Please analyze the following security questionnaire and provide a risk assessment:\n\n"

	noAnswer = "No answer provided"
)

// FormatSubmission renders the questionnaire as markdown for the model, sections in display order.
func FormatSubmission(sub *models.Submission) string {
	sections := make([]models.SubmissionSection, len(sub.Sections))
	copy(sections, sub.Sections)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })

	var b strings.Builder
	for _, sec := range sections {
		title := sec.Title
		if title == "" {
			title = sec.SectionKey
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, a := range sec.Answers {
			fmt.Fprintf(&b, "**%s**: %s\n", a.QuestionCode, a.QuestionText)
			fmt.Fprintf(&b, "Answer: %s\n\n", answerValue(a))
		}
	}
	return b.String()
}

func answerValue(a models.SubmissionAnswer) string {
	if text := strings.TrimSpace(a.AnswerText); text != "" {
		return text
	}
	raw := bytes.TrimSpace(a.AnswerJSON)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		return string(raw)
	}
	return noAnswer
}

func userPrompt(sub *models.Submission) string {
	return userPromptHeader + FormatSubmission(sub)
}
