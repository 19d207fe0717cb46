package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/api/response"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/metrics"
	"github.com/Rrens/redbot/internal/responder"
	"github.com/Rrens/redbot/internal/security"
)

// ChatHandler answers AI chat questions from the widget. It keeps no
// conversation state; visitor threads belong to the live-chat endpoints.
type ChatHandler struct {
	gate         *Gate
	orchestrator *responder.Orchestrator
	messages     *security.MessageValidator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(gate *Gate, orchestrator *responder.Orchestrator, messages *security.MessageValidator) *ChatHandler {
	return &ChatHandler{
		gate:         gate,
		orchestrator: orchestrator,
		messages:     messages,
	}
}

type chatRequest struct {
	Message string `json:"message"`
	JWT     string `json:"jwt"`
}

// ChatResponse is the answer shown in the widget
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Blocked string   `json:"blocked,omitempty"`
}

// Chat handles POST /api/chat. Token and origin failures are hard
// errors; entitlement failures are answered with a readable message.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	token := req.JWT
	if token == "" {
		token = bearerToken(r)
	}

	v, ok := h.gate.authorize(w, r, token, false)
	if !ok {
		return
	}

	question, err := h.messages.ValidateAndNormalize(req.Message)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if denial := h.gate.guard.CheckEntitlement(v.Bot, v.Snap, domain.ModeAI); denial != nil {
		metrics.ChatAnswers.WithLabelValues(string(domain.ModeAI), "denied").Inc()
		response.OK(w, ChatResponse{Answer: denial.Message, Sources: []string{}, Blocked: string(denial.Reason)})
		return
	}

	ans := h.orchestrator.Answer(r.Context(), responder.Request{
		Question:  question,
		Bot:       v.Bot,
		Workspace: v.Snap.Workspace,
		Bundle:    v.Snap.Bundle(),
	})
	if ans.Sources == nil {
		ans.Sources = []string{}
	}

	log.Debug().
		Str("bot_id", v.Bot.ID.String()).
		Str("outcome", ans.Outcome).
		Int("sources", len(ans.Sources)).
		Msg("Chat answered")
	response.OK(w, ChatResponse{Answer: ans.Text, Sources: ans.Sources})
}
