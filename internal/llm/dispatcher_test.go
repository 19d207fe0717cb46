package llm_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/llm/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *llm.Dispatcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := openai.NewCompatible("stub", srv.URL, "stub-model")
	return llm.NewDispatcher(llm.NewRouter(p), timeout, 0)
}

func TestDispatcher_Success(t *testing.T) {
	d := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"Refunds take 5 days."}}]}`))
	}, time.Second)

	answer, err := d.Generate(context.Background(), "STUB", llm.Call{APIKey: "sk-test", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Refunds take 5 days.", answer)
}

func TestDispatcher_FailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		provider string
		key      string
		kind     llm.Kind
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limited"}`))
			},
			provider: "stub",
			key:      "k",
			kind:     llm.KindHTTP,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>oops</html>`))
			},
			provider: "stub",
			key:      "k",
			kind:     llm.KindMalformed,
		},
		{
			name: "missing answer field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			provider: "stub",
			key:      "k",
			kind:     llm.KindMalformed,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			provider: "stub",
			key:      "k",
			kind:     llm.KindNetwork,
		},
		{
			name:     "unsupported provider",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			provider: "watson",
			key:      "k",
			kind:     llm.KindUnsupported,
		},
		{
			name:     "missing key",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			provider: "stub",
			kind:     llm.KindMissingKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, tt.handler, 100*time.Millisecond)
			_, err := d.Generate(context.Background(), tt.provider, llm.Call{APIKey: tt.key, Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, llm.KindOf(err))
		})
	}
}

func TestDispatcher_HTTPErrorCarriesStatus(t *testing.T) {
	d := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, time.Second)

	_, err := d.Generate(context.Background(), "stub", llm.Call{APIKey: "k"})
	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, http.StatusUnauthorized, llmErr.Status)
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, llm.KindUnexpected, llm.KindOf(errors.New("boom")))
}

func TestBuildPrompt(t *testing.T) {
	prompt := llm.BuildPrompt("What is the refund policy?", "Refunds within 30 days.")

	assert.Contains(t, prompt, "Use ONLY the following data")
	assert.Contains(t, prompt, "'"+llm.RefusalSentence+"'")
	assert.Contains(t, prompt, "Data:\nRefunds within 30 days.\n\nQuestion:\nWhat is the refund policy?")
	assert.Contains(t, prompt, "'For more details:' section")
}

func TestRouter_CaseInsensitive(t *testing.T) {
	r := llm.NewRouter(openai.NewProvider())

	_, ok := r.GetProvider(" OpenAI ")
	assert.True(t, ok)
	_, ok = r.GetProvider("deepseek")
	assert.False(t, ok)
	assert.Equal(t, []string{"openai"}, r.ListProviders())
}
