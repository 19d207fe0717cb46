package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/api/response"
	"github.com/Rrens/redbot/internal/conversation"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/security"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 16 << 10
)

// WSHandler serves the real-time chat socket shared by visitors and
// live-chat agents.
type WSHandler struct {
	gate          *Gate
	conversations *conversation.Service
	hub           *conversation.Hub
	messages      *security.MessageValidator
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(gate *Gate, conversations *conversation.Service, hub *conversation.Hub, messages *security.MessageValidator) *WSHandler {
	return &WSHandler{
		gate:          gate,
		conversations: conversations,
		hub:           hub,
		messages:      messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked against the bot's allow-list before upgrading
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// inboundFrame is a frame sent by the client
type inboundFrame struct {
	Type      domain.EventType `json:"type"`
	Message   string           `json:"message"`
	AgentName string           `json:"agent_name"`
}

// socket is one upgraded connection and what it is joined to
type socket struct {
	conn   *websocket.Conn
	client *conversation.Client
	thread *conversation.Thread
	agent  bool
}

// Serve handles GET /ws/chat/{publicKey}/{sessionID}. Agents connect with
// role=agent and an agent token.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	publicKey := chi.URLParam(r, "publicKey")
	sessionID := chi.URLParam(r, "sessionID")
	agent := r.URL.Query().Get("role") == security.RoleAgent

	v, ok := h.gate.authorize(w, r, r.URL.Query().Get("token"), false)
	if !ok {
		return
	}
	if v.Bot.PublicKey != publicKey {
		response.Forbidden(w, "Token does not match this bot.")
		return
	}
	if agent && !v.Claims.IsAgent() {
		response.Forbidden(w, "Agent token required.")
		return
	}
	if !security.ValidSessionID(sessionID) {
		response.BadRequest(w, "invalid session id")
		return
	}
	if denial := h.gate.guard.CheckEntitlement(v.Bot, v.Snap, domain.ModeLive); denial != nil {
		response.Forbidden(w, denial.Message)
		return
	}

	thread, err := h.conversations.Open(r.Context(), v.Bot, sessionID, v.Snap.Capabilities.Default)
	if err != nil {
		log.Error().Err(err).Str("bot_id", v.Bot.ID.String()).Msg("failed to open conversation")
		response.InternalError(w, "failed to open conversation")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &socket{conn: conn, client: h.hub.NewClient(), thread: thread, agent: agent}
	h.hub.Join(s.client, thread.Group())
	h.hub.Join(s.client, domain.StatusGroup(publicKey))

	// The request context ends with the handler; the socket outlives
	// middleware timeouts, so it gets its own.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	if agent {
		h.conversations.AgentJoined(ctx, publicKey, s.client.ID)
	}
	s.send(domain.StatusEvent(h.conversations.Presence().Online(publicKey)))

	log.Info().
		Str("public_key", publicKey).
		Str("session_id", sessionID).
		Bool("agent", agent).
		Msg("Realtime client connected")

	go h.writeLoop(s)
	h.readLoop(ctx, s)

	h.hub.Close(s.client)
	if agent {
		h.conversations.AgentLeft(ctx, publicKey, s.client.ID)
	}
	log.Info().
		Str("public_key", publicKey).
		Str("session_id", sessionID).
		Bool("agent", agent).
		Msg("Realtime client disconnected")
}

// send queues an event for this socket only
func (s *socket) send(ev domain.Event) {
	select {
	case s.client.Outbound <- ev:
	default:
	}
}

func (h *WSHandler) readLoop(ctx context.Context, s *socket) {
	s.conn.SetReadLimit(wsReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame inboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}

		sender := domain.SenderUser
		if s.agent {
			sender = domain.SenderBot
		}

		switch frame.Type {
		case domain.EventChatMessage:
			text, err := h.messages.ValidateAndNormalize(frame.Message)
			if err != nil {
				s.send(domain.Event{Type: domain.EventError, Message: err.Error()})
				continue
			}
			if _, err := h.conversations.Append(ctx, s.thread, sender, text, nil, true); err != nil {
				log.Error().Err(err).Str("conversation_id", s.thread.Conversation.ID.String()).Msg("failed to store realtime message")
				s.send(domain.Event{Type: domain.EventError, Message: "Message could not be delivered."})
			}
		case domain.EventTyping:
			h.conversations.Typing(ctx, s.thread, sender, frame.AgentName)
		default:
			s.send(domain.Event{Type: domain.EventError, Message: "unsupported event type"})
		}
	}
}

func (h *WSHandler) writeLoop(s *socket) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.client.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-s.client.Outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
