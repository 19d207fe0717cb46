// Package responder turns a visitor question into the bot's reply:
// canned greetings, grounded generation and answer formatting.
package responder

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/metrics"
	"github.com/Rrens/redbot/internal/retrieval"
)

// Outcome labels for answered questions
const (
	outcomeGreeting  = "greeting"
	outcomeGenerated = "generated"
	outcomeRefusal   = "refusal"
	outcomeContact   = "contact"
	outcomeFallback  = "fallback"
)

// Generator performs one grounded generation call
type Generator interface {
	Generate(ctx context.Context, providerName string, call llm.Call) (string, error)
}

// Retriever finds knowledge for a bot. It never fails; an empty result
// means nothing relevant was found.
type Retriever interface {
	Retrieve(ctx context.Context, botID uuid.UUID, query string) retrieval.Result
}

// Request is one question addressed to a bot
type Request struct {
	Question  string
	Bot       *domain.Bot
	Workspace *domain.Workspace
	Bundle    domain.Bundle
}

// Answer is the reply shown to the visitor
type Answer struct {
	Text    string
	Sources []string
	Outcome string
}

// Orchestrator produces replies for AI chat
type Orchestrator struct {
	generator Generator
	retriever Retriever
	cipher    domain.SecretCipher
}

// NewOrchestrator creates an orchestrator. cipher decrypts bot API keys.
func NewOrchestrator(generator Generator, retriever Retriever, cipher domain.SecretCipher) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		retriever: retriever,
		cipher:    cipher,
	}
}

// Answer replies to req. It always returns visitor-safe text; failures
// become fallback messages.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (ans Answer) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("bot_id", req.Bot.ID.String()).Msg("answer failed")
			ans = Answer{Text: FallbackMessage(nil, req.Workspace, req.Bundle), Outcome: outcomeFallback}
		}
		metrics.ChatAnswers.WithLabelValues(string(domain.ModeAI), ans.Outcome).Inc()
	}()

	wsName := ""
	if req.Workspace != nil {
		wsName = req.Workspace.Name
	}
	if reply, ok := Greeting(req.Question, req.Bot.Name, wsName); ok {
		return Answer{Text: reply, Outcome: outcomeGreeting}
	}

	result := o.retriever.Retrieve(ctx, req.Bot.ID, req.Question)

	raw := llm.RefusalSentence
	if !result.Empty() {
		generated, err := o.generate(ctx, req.Bot, req.Question, result.Context())
		if err != nil {
			log.Warn().
				Str("bot_id", req.Bot.ID.String()).
				Str("provider", req.Bot.AIProvider).
				Str("kind", string(llm.KindOf(err))).
				Msg("AI answer failed")
			return Answer{Text: FallbackMessage(err, req.Workspace, req.Bundle), Outcome: outcomeFallback}
		}
		raw = generated
	}

	text, outcome := postProcess(postInput{
		Question:  req.Question,
		Raw:       raw,
		Context:   result.Context(),
		Workspace: req.Workspace,
		Bundle:    req.Bundle,
	})
	ans = Answer{Text: text, Outcome: outcome}
	if outcome == outcomeGenerated || outcome == outcomeContact {
		ans.Sources = result.Sources()
	}
	return ans
}

func (o *Orchestrator) generate(ctx context.Context, bot *domain.Bot, question, data string) (string, error) {
	apiKey, err := bot.ReadSecret(o.cipher)
	if err != nil {
		return "", &llm.Error{Kind: llm.KindUnexpected, Provider: bot.AIProvider, Err: err}
	}
	return o.generator.Generate(ctx, bot.AIProvider, llm.Call{
		APIKey: apiKey,
		Model:  bot.AIModel,
		Prompt: llm.BuildPrompt(question, data),
	})
}
