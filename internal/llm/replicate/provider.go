package replicate

import (
	"context"
	"net/http"

	"github.com/Rrens/redbot/internal/llm"
)

// Provider implements llm.Provider for Replicate predictions. The model is
// a model version id.
type Provider struct {
	BaseURL string
}

// NewProvider creates a new Replicate provider
func NewProvider() *Provider {
	return &Provider{BaseURL: "https://api.replicate.com/v1"}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "replicate"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return ""
}

type predictionRequest struct {
	Version string `json:"version"`
	Input   input  `json:"input"`
}

type input struct {
	Prompt string `json:"prompt"`
}

// BuildRequest builds a prediction call. The prediction is not polled;
// only synchronously available output is read.
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	payload := predictionRequest{Version: call.Model, Input: input{Prompt: call.Prompt}}
	return llm.NewJSONRequest(ctx, p.BaseURL+"/predictions", payload, map[string]string{
		"Authorization": "Token " + call.APIKey,
	})
}

// ExtractAnswer reads the output, taking the first element of list output
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body, "output.0", "output")
}
