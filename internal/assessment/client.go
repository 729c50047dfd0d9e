// Package assessment asks an AI model to grade a questionnaire submission into risk counts.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openwork-hackathon/team-clawctor/internal/ai"
	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/validation"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

const op = "assess"

// resultSchema requires the counts explicitly. A reply that omits them is malformed rather
// than a clean bill of health.
var resultSchema = validation.MustCompileSchema([]byte(`{
  "type": "object",
  "required": ["highRiskCount", "mediumRiskCount", "lowRiskCount", "summary"],
  "properties": {
    "highRiskCount":   {"type": "integer", "minimum": 0},
    "mediumRiskCount": {"type": "integer", "minimum": 0},
    "lowRiskCount":    {"type": "integer", "minimum": 0},
    "summary":         {"type": "string"},
    "risks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["level", "description"],
        "properties": {
          "level":       {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
          "category":    {"type": "string"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`))

type reply struct {
	HighRiskCount   int               `json:"highRiskCount"`
	MediumRiskCount int               `json:"mediumRiskCount"`
	LowRiskCount    int               `json:"lowRiskCount"`
	Summary         string            `json:"summary"`
	Risks           []models.RiskItem `json:"risks"`
}

// Client implements services.AssessmentClient.
type Client struct {
	ai     *ai.Client
	schema *gojsonschema.Schema
}

func NewClient(c *ai.Client) *Client {
	return &Client{ai: c, schema: resultSchema}
}

func (c *Client) Assess(ctx context.Context, sub *models.Submission) (*models.AssessmentResult, error) {
	if sub == nil || sub.AnswerCount() == 0 {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, errors.New("submission has no answers"))
	}

	completion, err := c.ai.Complete(ctx, op, SystemPrompt, userPrompt(sub))
	if err != nil {
		return nil, err
	}
	result, err := c.parse(completion.Content)
	if err != nil {
		logger.Log.Warn("Unusable assessment reply",
			zap.String("submission_ref", sub.Ref),
			zap.String("model", completion.Model),
			zap.Error(err))
		return nil, err
	}
	result.Model = completion.Model
	return result, nil
}

// Parse turns raw model text into an AssessmentResult.
func Parse(content string) (*models.AssessmentResult, error) {
	return (&Client{schema: resultSchema}).parse(content)
}

func (c *Client) parse(content string) (*models.AssessmentResult, error) {
	obj, err := validation.ExtractObject(content)
	if err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, err)
	}
	if err := validation.ValidateDocument(obj, c.schema); err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, err)
	}

	var r reply
	if err := json.Unmarshal(obj, &r); err != nil {
		return nil, services.NewUpstreamError(op, services.UpstreamMalformed, fmt.Errorf("decode reply: %w", err))
	}

	return &models.AssessmentResult{
		Counts: models.RiskCounts{
			High:   r.HighRiskCount,
			Medium: r.MediumRiskCount,
			Low:    r.LowRiskCount,
		},
		Summary: r.Summary,
		Raw:     json.RawMessage(obj),
		Risks:   r.Risks,
	}, nil
}
