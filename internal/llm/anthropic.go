package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/shared"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	anthropicMaxTokens    = 4096
)

// AnthropicClient generates plans through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg *config.Config, opts ...aoption.RequestOption) (*AnthropicClient, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, &config.Error{Key: "ANTHROPIC_API_KEY"}
	}
	model := cfg.PlanModel
	if model == "" {
		model = defaultAnthropicModel
	}
	all := append([]aoption.RequestOption{aoption.WithAPIKey(cfg.AnthropicAPIKey)}, opts...)
	return &AnthropicClient{client: anthropic.NewClient(all...), model: model}, nil
}

// GenerateContent sends a prompt as a single user message.
func (c *AnthropicClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			var retryAfter time.Duration
			if apiErr.Response != nil {
				retryAfter, _ = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
			}
			return ContentResponse{}, classifyHTTP(config.ProviderAnthropic, apiErr.StatusCode, nil, retryAfter, err)
		}
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: sb.String(),
		Usage: shared.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			Model:            string(msg.Model),
		},
	}, nil
}
