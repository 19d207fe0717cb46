package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/api/response"
	"github.com/Rrens/redbot/internal/conversation"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/metrics"
	"github.com/Rrens/redbot/internal/responder"
	"github.com/Rrens/redbot/internal/security"
)

// LiveHandler relays live-chat messages over plain HTTP
type LiveHandler struct {
	gate          *Gate
	orchestrator  *responder.Orchestrator
	conversations *conversation.Service
	messages      *security.MessageValidator
}

// NewLiveHandler creates a new live chat handler
func NewLiveHandler(gate *Gate, orchestrator *responder.Orchestrator, conversations *conversation.Service, messages *security.MessageValidator) *LiveHandler {
	return &LiveHandler{
		gate:          gate,
		orchestrator:  orchestrator,
		conversations: conversations,
		messages:      messages,
	}
}

type liveSendRequest struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message"`
}

type liveSendResponse struct {
	Message *domain.Message `json:"message,omitempty"`
	Reply   *domain.Message `json:"reply,omitempty"`
	Mode    domain.Mode     `json:"mode,omitempty"`
	Blocked string          `json:"blocked,omitempty"`
	Notice  string          `json:"notice,omitempty"`
}

// Send stores a visitor message and hands the conversation to a human.
// While the conversation was still in AI mode, and the plan includes AI,
// the bot answers this first message too.
func (h *LiveHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req liveSendRequest
	if !decode(w, r, &req) {
		return
	}
	token := req.Token
	if token == "" {
		token = bearerToken(r)
	}

	v, ok := h.gate.authorize(w, r, token, false)
	if !ok {
		return
	}
	if !security.ValidSessionID(req.SessionID) {
		response.BadRequest(w, "invalid session id")
		return
	}
	text, err := h.messages.ValidateAndNormalize(req.Message)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if denial := h.gate.guard.CheckEntitlement(v.Bot, v.Snap, domain.ModeLive); denial != nil {
		metrics.ChatAnswers.WithLabelValues(string(domain.ModeLive), "denied").Inc()
		response.OK(w, liveSendResponse{Blocked: string(denial.Reason), Notice: denial.Message})
		return
	}

	ctx := r.Context()
	thread, err := h.conversations.Open(ctx, v.Bot, req.SessionID, v.Snap.Capabilities.Default)
	if err != nil {
		log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to open conversation")
		response.InternalError(w, "failed to open conversation")
		return
	}

	res, err := h.conversations.Append(ctx, thread, domain.SenderUser, text, nil, true)
	if err != nil {
		log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to store live message")
		response.InternalError(w, "failed to store message")
		return
	}
	if res.Flipped() {
		log.Info().
			Str("bot_id", v.Bot.ID.String()).
			Str("session_id", req.SessionID).
			Msg("Conversation handed to live chat")
	}

	resp := liveSendResponse{Message: res.Message, Mode: res.Mode}

	if res.PreviousMode == domain.ModeAI && v.Snap.Includes(domain.ModeAI) {
		ans := h.orchestrator.Answer(ctx, responder.Request{
			Question:  text,
			Bot:       v.Bot,
			Workspace: v.Snap.Workspace,
			Bundle:    v.Snap.Bundle(),
		})
		reply, err := h.conversations.Append(ctx, thread, domain.SenderBot, ans.Text, ans.Sources, false)
		if err != nil {
			log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to store ai reply")
		} else {
			resp.Reply = reply.Message
		}
	}

	response.OK(w, resp)
}

// Poll returns the messages stored after the client's last seen id.
// has_more tells the client to poll again from the last returned id.
func (h *LiveHandler) Poll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	v, ok := h.gate.authorize(w, r, token, false)
	if !ok {
		return
	}

	sessionID := q.Get("session_id")
	if !security.ValidSessionID(sessionID) {
		response.BadRequest(w, "invalid session id")
		return
	}

	var after int64
	if raw := q.Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid after cursor")
			return
		}
		after = n
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	online := h.conversations.Presence().Online(v.Bot.PublicKey)

	thread, err := h.conversations.Find(r.Context(), v.Bot, sessionID)
	if err != nil {
		log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to load conversation")
		response.InternalError(w, "failed to load conversation")
		return
	}
	if thread == nil {
		response.OK(w, map[string]any{
			"messages":     []domain.Message{},
			"has_more":     false,
			"mode":         v.Snap.Capabilities.Default,
			"agent_online": online,
		})
		return
	}

	msgs, hasMore, err := h.conversations.Poll(r.Context(), thread, after, limit)
	if err != nil {
		log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to poll messages")
		response.InternalError(w, "failed to load messages")
		return
	}

	response.OK(w, map[string]any{
		"messages":     msgs,
		"has_more":     hasMore,
		"mode":         thread.Conversation.EffectiveMode,
		"agent_online": online,
	})
}
