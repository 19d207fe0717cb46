// Package providers registers every supported generation provider.
package providers

import (
	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/llm/anthropic"
	"github.com/Rrens/redbot/internal/llm/cohere"
	"github.com/Rrens/redbot/internal/llm/google"
	"github.com/Rrens/redbot/internal/llm/huggingface"
	"github.com/Rrens/redbot/internal/llm/openai"
	"github.com/Rrens/redbot/internal/llm/openrouter"
	"github.com/Rrens/redbot/internal/llm/replicate"
)

// NewRouter returns a router with all built-in providers
func NewRouter() *llm.Router {
	return llm.NewRouter(
		google.NewProvider(),
		openai.NewProvider(),
		openrouter.NewProvider(),
		anthropic.NewProvider(),
		cohere.NewProvider(),
		huggingface.NewProvider(),
		replicate.NewProvider(),
	)
}
