package anthropic

import (
	"context"
	"net/http"

	"github.com/Rrens/redbot/internal/llm"
)

const apiVersion = "2023-06-01"

// Provider implements llm.Provider for the Anthropic messages API
type Provider struct {
	BaseURL string
}

// NewProvider creates a new Anthropic provider
func NewProvider() *Provider {
	return &Provider{BaseURL: "https://api.anthropic.com/v1"}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "anthropic"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return "claude-3-5-haiku-latest"
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequest builds a messages call
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	payload := messagesRequest{
		Model:       call.Model,
		Messages:    []message{{Role: "user", Content: call.Prompt}},
		MaxTokens:   1024,
		Temperature: 0,
	}
	return llm.NewJSONRequest(ctx, p.BaseURL+"/messages", payload, map[string]string{
		"x-api-key":         call.APIKey,
		"anthropic-version": apiVersion,
	})
}

// ExtractAnswer reads the answer from current and legacy response shapes
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body,
		"completion",
		"message.content.0.text",
		"message.content",
		"content.0.text",
		"content",
	)
}
