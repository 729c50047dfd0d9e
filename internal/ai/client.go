// Package ai wraps an OpenAI-compatible chat completion endpoint for the assessment and
// report generators.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/services"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/sashabaranov/go-openai"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	// Timeout bounds a single HTTP exchange. Callers still pass their own deadline.
	Timeout time.Duration
}

// Client sends one system and one user message and returns the text of the first choice.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = utils.NewHTTPClient(cfg.Timeout)

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Completion is the reply text and the model that actually served it.
type Completion struct {
	Content string
	Model   string
}

// Complete asks for a JSON object reply. Failures come back as *services.UpstreamError tagged
// with op.
func (c *Client) Complete(ctx context.Context, op, system, user string) (*Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(ctxErr, err)
		}
		return nil, services.NewUpstreamError(op, services.UpstreamTransport, err)
	}

	if len(resp.Choices) == 0 {
		return nil, services.NewUpstreamError(op, services.UpstreamEmpty, errors.New("no choices in response"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, services.NewUpstreamError(op, services.UpstreamEmpty, errors.New("empty completion"))
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Completion{Content: content, Model: model}, nil
}
