package openrouter

import (
	"github.com/Rrens/redbot/internal/llm/openai"
)

// NewProvider creates a provider for OpenRouter, which serves the OpenAI
// chat completions protocol.
func NewProvider() *openai.Provider {
	return openai.NewCompatible("openrouter", "https://openrouter.ai/api/v1", "openai/gpt-4o-mini")
}
