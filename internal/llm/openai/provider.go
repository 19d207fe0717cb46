package openai

import (
	"context"
	"net/http"

	"github.com/Rrens/redbot/internal/llm"
)

// Provider implements llm.Provider for OpenAI-compatible chat completions
type Provider struct {
	name         string
	defaultModel string
	BaseURL      string
}

// NewProvider creates a new OpenAI provider
func NewProvider() *Provider {
	return NewCompatible("openai", "https://api.openai.com/v1", "gpt-4o")
}

// NewCompatible creates a provider for another service speaking the
// OpenAI chat completions protocol.
func NewCompatible(name, baseURL, defaultModel string) *Provider {
	return &Provider{name: name, defaultModel: defaultModel, BaseURL: baseURL}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequest builds a chat completions call
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	payload := chatRequest{
		Model:       call.Model,
		Messages:    []chatMessage{{Role: "user", Content: call.Prompt}},
		Temperature: 0,
		MaxTokens:   1024,
	}
	return llm.NewJSONRequest(ctx, p.BaseURL+"/chat/completions", payload, map[string]string{
		"Authorization": "Bearer " + call.APIKey,
	})
}

// ExtractAnswer reads the first choice
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body,
		"choices.0.message.content",
		"choices.0.text",
	)
}
