package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mohammad-safakhou/briefer/config"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	anthropic_provider "github.com/mohammad-safakhou/briefer/provider/anthropic"
	gemini_provider "github.com/mohammad-safakhou/briefer/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/briefer/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = config.ProviderOpenAI
	Anthropic Client = config.ProviderAnthropic
	Google    Client = config.ProviderGoogle
)

// requestTimeout bounds a single model call.
const requestTimeout = 120 * time.Second

// NewModel builds the agent.Model selected by the settings. API keys come
// from the environment only.
func NewModel(ctx context.Context, cfg *config.Config) (agent.Model, error) {
	switch Client(cfg.ModelProvider) {
	case OpenAI, "":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, openai_provider.ErrMissingKey
		}
		return openai_provider.NewOpenAIClient(apiKey, cfg.OpenAIModel, requestTimeout), nil
	case Anthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, anthropic_provider.ErrMissingKey
		}
		return anthropic_provider.NewAnthropicClient(apiKey, cfg.AnthropicModel, requestTimeout), nil
	case Google:
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		return gemini_provider.NewGeminiClient(ctx, apiKey, cfg.GoogleModel)
	default:
		return nil, fmt.Errorf("unknown model provider: %s. Supported: openai, anthropic, google", cfg.ModelProvider)
	}
}

// Factory adapts NewModel to a per-run constructor so settings edits take
// effect on the next run.
func Factory(load func() (*config.Config, error)) func(context.Context) (agent.Model, error) {
	return func(ctx context.Context) (agent.Model, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		return NewModel(ctx, cfg)
	}
}
