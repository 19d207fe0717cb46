package huggingface

import (
	"context"
	"net/http"

	"github.com/Rrens/redbot/internal/llm"
)

// Provider implements llm.Provider for the Hugging Face inference API.
// The model is a repository id such as "mistralai/Mistral-7B-Instruct-v0.2".
type Provider struct {
	BaseURL string
}

// NewProvider creates a new Hugging Face provider
func NewProvider() *Provider {
	return &Provider{BaseURL: "https://api-inference.huggingface.co/models"}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "huggingface"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return "mistralai/Mistral-7B-Instruct-v0.2"
}

type inferenceRequest struct {
	Inputs  string  `json:"inputs"`
	Options options `json:"options"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

// BuildRequest builds an inference call on the model endpoint
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	payload := inferenceRequest{Inputs: call.Prompt, Options: options{WaitForModel: true}}
	return llm.NewJSONRequest(ctx, p.BaseURL+"/"+call.Model, payload, map[string]string{
		"Authorization": "Bearer " + call.APIKey,
	})
}

// ExtractAnswer reads list or object shaped outputs
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body,
		"0.generated_text",
		"0",
		"generated_text",
		"text",
	)
}
