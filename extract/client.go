// ABOUTME: Language model client abstraction used by the extractor
// ABOUTME: Selects the Anthropic or Gemini implementation from config
package extract

import (
	"context"

	"github.com/harperreed/kontakt/config"
	"github.com/rotisserie/eris"
)

// Client sends one system prompt plus one user message and returns the
// model's text reply.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Close() error
}

// NewClient creates the client named by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("API key is required")
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "anthropic", "":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, eris.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
