package providers_test

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_RegistersAllProviders(t *testing.T) {
	r := providers.NewRouter()
	assert.Equal(t,
		[]string{"anthropic", "cohere", "google", "huggingface", "openai", "openrouter", "replicate"},
		r.ListProviders(),
	)

	infos := r.GetProvidersInfo()
	require.Len(t, infos, 7)
	for _, info := range infos {
		assert.NotEmpty(t, info.Name)
	}
}

func TestBuildRequest(t *testing.T) {
	r := providers.NewRouter()
	call := llm.Call{APIKey: "secret", Model: "m-1", Prompt: "hello"}

	tests := []struct {
		provider string
		url      string
		header   string
		value    string
		field    string
		want     any
	}{
		{"google", "https://generativelanguage.googleapis.com/v1beta/models/m-1:generateContent?key=secret", "", "", "generationConfig.topK", float64(40)},
		{"openai", "https://api.openai.com/v1/chat/completions", "Authorization", "Bearer secret", "max_tokens", float64(1024)},
		{"openrouter", "https://openrouter.ai/api/v1/chat/completions", "Authorization", "Bearer secret", "model", "m-1"},
		{"anthropic", "https://api.anthropic.com/v1/messages", "x-api-key", "secret", "max_tokens", float64(1024)},
		{"cohere", "https://api.cohere.ai/v1/generate", "Authorization", "Bearer secret", "return_likelihoods", "NONE"},
		{"huggingface", "https://api-inference.huggingface.co/models/m-1", "Authorization", "Bearer secret", "inputs", "hello"},
		{"replicate", "https://api.replicate.com/v1/predictions", "Authorization", "Token secret", "version", "m-1"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, ok := r.GetProvider(tt.provider)
			require.True(t, ok)

			req, err := p.BuildRequest(context.Background(), call)
			require.NoError(t, err)
			assert.Equal(t, "POST", req.Method)
			assert.Equal(t, tt.url, req.URL.String())
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			if tt.header != "" {
				assert.Equal(t, tt.value, req.Header.Get(tt.header))
			}

			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.want, lookup(body, tt.field))
		})
	}
}

func TestGoogle_KeepsModelsPrefix(t *testing.T) {
	p, _ := providers.NewRouter().GetProvider("google")
	req, err := p.BuildRequest(context.Background(), llm.Call{APIKey: "k", Model: "models/gemini-pro"})
	require.NoError(t, err)
	assert.Contains(t, req.URL.Path, "/v1beta/models/gemini-pro:generateContent")
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		body     string
		want     string
	}{
		{"google candidates", "google", `{"candidates":[{"content":{"parts":[{"text":"A"}]}}]}`, "A"},
		{"google output", "google", `{"output":{"text":"B"}}`, "B"},
		{"openai message", "openai", `{"choices":[{"message":{"content":"C"}}]}`, "C"},
		{"openai text", "openai", `{"choices":[{"text":"D"}]}`, "D"},
		{"openrouter", "openrouter", `{"choices":[{"message":{"content":"E"}}]}`, "E"},
		{"anthropic completion", "anthropic", `{"completion":"F"}`, "F"},
		{"anthropic content blocks", "anthropic", `{"content":[{"type":"text","text":"G"}]}`, "G"},
		{"anthropic message", "anthropic", `{"message":{"content":"H"}}`, "H"},
		{"cohere", "cohere", `{"generations":[{"text":"I"}]}`, "I"},
		{"huggingface list", "huggingface", `[{"generated_text":"J"}]`, "J"},
		{"huggingface object", "huggingface", `{"generated_text":"K"}`, "K"},
		{"huggingface strings", "huggingface", `["L"]`, "L"},
		{"replicate list", "replicate", `{"output":["M","N"]}`, "M"},
		{"replicate string", "replicate", `{"output":"O"}`, "O"},
	}

	r := providers.NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := r.GetProvider(tt.provider)
			got, err := p.ExtractAnswer([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAnswer_GivesUp(t *testing.T) {
	r := providers.NewRouter()
	for _, name := range r.ListProviders() {
		p, _ := r.GetProvider(name)
		_, err := p.ExtractAnswer([]byte(`{"unexpected":true}`))
		assert.Error(t, err, name)
	}
}

func lookup(m map[string]any, path string) any {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}
