// Package report renders the paid security health check report for a completed assessment.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openwork-hackathon/team-clawctor/internal/ai"
	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/validation"

	"github.com/xeipuuv/gojsonschema"
)

const op = "render"

// Risk is a finding with scoring and remediation detail.
type Risk struct {
	Level       string   `json:"level"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	CVSS        *float64 `json:"cvss,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

type CategoryHealth struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color,omitempty"`
}

type RemediationPhase struct {
	Phase         int    `json:"phase"`
	Title         string `json:"title"`
	Urgency       string `json:"urgency"`
	Description   string `json:"description"`
	ExpectedBoost string `json:"expectedBoost"`
}

// DetailedAssessment is the report model's expansion of an assessment.
type DetailedAssessment struct {
	OverallScore       int                `json:"overallScore"`
	ExecutiveSummary   string             `json:"executiveSummary"`
	CategoryHealth     []CategoryHealth   `json:"categoryHealth"`
	Risks              []Risk             `json:"risks"`
	RemediationRoadmap []RemediationPhase `json:"remediationRoadmap"`
}

var detailSchema = validation.MustCompileSchema([]byte(`{
  "type": "object",
  "required": ["overallScore", "executiveSummary", "categoryHealth", "risks", "remediationRoadmap"],
  "properties": {
    "overallScore":     {"type": "integer", "minimum": 0, "maximum": 100},
    "executiveSummary": {"type": "string", "minLength": 1},
    "categoryHealth": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "score"],
        "properties": {
          "name":  {"type": "string"},
          "score": {"type": "integer", "minimum": 0, "maximum": 100},
          "color": {"type": "string"}
        }
      }
    },
    "risks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["level", "description"],
        "properties": {
          "level":       {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
          "category":    {"type": "string"},
          "description": {"type": "string"},
          "cvss":        {"type": "number", "minimum": 0, "maximum": 10},
          "remediation": {"type": "string"}
        }
      }
    },
    "remediationRoadmap": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["phase", "title"],
        "properties": {
          "phase":         {"type": "integer", "minimum": 1},
          "title":         {"type": "string"},
          "urgency":       {"type": "string"},
          "description":   {"type": "string"},
          "expectedBoost": {"type": "string"}
        }
      }
    }
  }
}`))

const detailSystemPrompt = `You are a security report generator. Based on the provided risk assessment data, generate a detailed security health check report in JSON format.

The report should include:
1. An overall security score (0-100)
2. A detailed executive summary (2-3 paragraphs)
3. Category health scores for: Network Security, Identity & Access, Data Encryption, API Integrity
4. Detailed risk items with CVSS scores and remediation suggestions
5. A phased remediation roadmap

Respond ONLY with valid JSON in this exact format:
{
  "overallScore": <number 0-100>,
  "executiveSummary": "<detailed 2-3 paragraph summary>",
  "categoryHealth": [
    {"name": "Network Security", "score": <0-100>, "color": "<green/yellow/orange/red based on score>"},
    {"name": "Identity & Access", "score": <0-100>, "color": "<color>"},
    {"name": "Data Encryption", "score": <0-100>, "color": "<color>"},
    {"name": "API Integrity", "score": <0-100>, "color": "<color>"}
  ],
  "risks": [
    {
      "level": "HIGH|MEDIUM|LOW",
      "category": "<category name>",
      "description": "<risk description>",
      "cvss": <number 0-10>,
      "remediation": "<remediation suggestion>"
    }
  ],
  "remediationRoadmap": [
    {
      "phase": 1,
      "title": "<phase title>",
      "urgency": "Urgent|Week 2|Month 1",
      "description": "<what to do>",
      "expectedBoost": "+X%"
    }
  ]
}`

// DetailGenerator asks the report model to expand a task's assessment.
type DetailGenerator struct {
	ai     *ai.Client
	schema *gojsonschema.Schema
}

func NewDetailGenerator(c *ai.Client) *DetailGenerator {
	return &DetailGenerator{ai: c, schema: detailSchema}
}

func (g *DetailGenerator) Generate(ctx context.Context, task *models.Task) (*DetailedAssessment, error) {
	completion, err := g.ai.Complete(ctx, op, detailSystemPrompt, detailUserPrompt(task))
	if err != nil {
		return nil, err
	}
	return parseDetail(completion.Content, g.schema)
}

func parseDetail(content string, schema *gojsonschema.Schema) (*DetailedAssessment, error) {
	obj, err := validation.ExtractObject(content)
	if err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, err)
	}
	if err := validation.ValidateDocument(obj, schema); err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, err)
	}
	var d DetailedAssessment
	if err := json.Unmarshal(obj, &d); err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, fmt.Errorf("decode reply: %w", err))
	}
	return &d, nil
}

func detailUserPrompt(task *models.Task) string {
	var b strings.Builder
	b.WriteString("Generate a detailed security health check report for:\n\n")
	fmt.Fprintf(&b, "High Risk Issues: %d\n", task.HighRiskCount)
	fmt.Fprintf(&b, "Medium Risk Issues: %d\n", task.MediumRiskCount)
	fmt.Fprintf(&b, "Low Risk Issues: %d\n", task.LowRiskCount)

	summary := task.AssessmentSummary
	if summary == "" {
		summary = "No summary available"
	}
	fmt.Fprintf(&b, "Initial Summary: %s\n\n", summary)

	if risks := assessedRisks(task); len(risks) > 0 {
		if out, err := json.MarshalIndent(risks, "", "  "); err == nil {
			fmt.Fprintf(&b, "Identified Risks:\n%s\n\n", out)
		}
	}

	b.WriteString("Please generate a comprehensive security report with detailed findings, scores, and remediation recommendations.")
	return b.String()
}

// assessedRisks reads the findings list out of the stored assessment, if any.
func assessedRisks(task *models.Task) []models.RiskItem {
	if len(task.RawAssessment) == 0 {
		return nil
	}
	var raw struct {
		Risks []models.RiskItem `json:"risks"`
	}
	if err := json.Unmarshal(task.RawAssessment, &raw); err != nil {
		return nil
	}
	return raw.Risks
}
