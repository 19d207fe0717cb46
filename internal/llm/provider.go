package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Call holds the inputs of one grounded generation call. APIKey is the
// decrypted bot key and must not outlive the call.
type Call struct {
	APIKey string
	Model  string
	Prompt string
}

// Provider adapts one upstream generation API. The dispatcher owns the
// HTTP round trip; a provider only shapes the request and reads the answer.
type Provider interface {
	// Name returns the provider identifier stored on bots
	Name() string

	// DefaultModel is used when the bot has no model configured
	DefaultModel() string

	// BuildRequest constructs the provider-specific HTTP request
	BuildRequest(ctx context.Context, call Call) (*http.Request, error)

	// ExtractAnswer reads the answer text from a successful response body
	ExtractAnswer(body []byte) (string, error)
}

// NewJSONRequest builds a POST request with a JSON body
func NewJSONRequest(ctx context.Context, url string, payload any, headers map[string]string) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
