// Package generator calls the language model that writes posts.
package generator

import (
	"context"
	"fmt"

	"github.com/jimdaga/unipost/internal/prompt"
)

// LLMClient produces post text from an assembled prompt.
type LLMClient interface {
	Complete(ctx context.Context, p prompt.Context) (string, error)
}

// LLMSettings configures the concrete client.
type LLMSettings struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewFromConfig selects a client by provider: openai, deepseek (OpenAI
// compatible endpoint) or mock.
func NewFromConfig(cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is nil")
	}

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAILLMFromConfig(cfg)
	case "deepseek":
		c := *cfg
		if c.BaseURL == "" {
			c.BaseURL = deepseekBaseURL
		}
		return NewOpenAILLMFromConfig(&c)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
