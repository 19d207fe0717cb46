package google

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Rrens/redbot/internal/llm"
)

// Provider implements llm.Provider for the Google Generative Language API
type Provider struct {
	BaseURL string
}

// NewProvider creates a new Google provider
func NewProvider() *Provider {
	return &Provider{BaseURL: "https://generativelanguage.googleapis.com/v1beta"}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "google"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return "gemini-1.5-flash"
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// BuildRequest builds a generateContent call; the key travels as a query
// parameter.
func (p *Provider) BuildRequest(ctx context.Context, call llm.Call) (*http.Request, error) {
	model := call.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	endpoint := p.BaseURL + "/" + model + ":generateContent?key=" + url.QueryEscape(call.APIKey)

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: call.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}
	return llm.NewJSONRequest(ctx, endpoint, payload, nil)
}

// ExtractAnswer reads the first candidate part
func (p *Provider) ExtractAnswer(body []byte) (string, error) {
	return llm.FirstString(body,
		"candidates.0.content.parts.0.text",
		"output.text",
		"response",
	)
}
