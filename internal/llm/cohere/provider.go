package cohere

import (
	"context"
	"net/http"

	"github.com/Rrens/redbot/internal/llm"
)

// Provider implements llm.Provider for the Cohere generate API
type Provider struct {
	BaseURL string
}

// NewProvider creates a new Cohere provider
func NewProvider() *Provider {
	return &Provider{BaseURL: "https://api.cohere.ai/v1"}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "cohere"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return "command"
}

type generateRequest struct {
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	ReturnLikelihoods string  `json:"return_likelihoods"`
}

// BuildRequest builds a generate call
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	payload := generateRequest{
		Model:             call.Model,
		Prompt:            call.Prompt,
		MaxTokens:         1024,
		Temperature:       0,
		ReturnLikelihoods: "NONE",
	}
	return llm.NewJSONRequest(ctx, p.BaseURL+"/generate", payload, map[string]string{
		"Authorization": "Bearer " + call.APIKey,
	})
}

// ExtractAnswer reads the first generation
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body, "generations.0.text", "text")
}
