package llm

import (
	"context"
	"fmt"

	"ai-fitness-planner/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTextGenerator builds the generator selected by cfg.PlanProvider.
// The returned Closer must be closed when the generator is no longer needed.
func NewTextGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, Closer, error) {
	switch cfg.PlanProvider {
	case config.ProviderGemini, "":
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, nil, &config.Error{Key: "GROQ_API_KEY"}
		}
		return NewChatClient(ChatConfig{
			Provider:    config.ProviderGroq,
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.PlanModel,
			Temperature: 0.7,
		}), nopCloser{}, nil
	case config.ProviderAnthropic:
		client, err := NewAnthropicClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported plan provider %q", cfg.PlanProvider)
	}
}
