package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/api/response"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/service"
)

// EmbedHandler serves the public widget endpoints
type EmbedHandler struct {
	gate      *Gate
	qa        *service.QAService
	enquiries *service.EnquiryService
}

// NewEmbedHandler creates a new embed handler
func NewEmbedHandler(gate *Gate, qa *service.QAService, enquiries *service.EnquiryService) *EmbedHandler {
	return &EmbedHandler{gate: gate, qa: qa, enquiries: enquiries}
}

// widgetResponse boots the widget. Token is empty when the bot is blocked.
type widgetResponse struct {
	Token          string            `json:"token,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	PublicKey      string            `json:"public_key"`
	BotName        string            `json:"bot_name"`
	AvailableModes []domain.Mode     `json:"available_modes"`
	DefaultMode    domain.Mode       `json:"default_mode"`
	Blocked        bool              `json:"blocked"`
	BlockReason    string            `json:"block_reason,omitempty"`
	BlockMessage   string            `json:"block_message,omitempty"`
	Appearance     domain.Appearance `json:"appearance"`
	Footer         string            `json:"footer,omitempty"`
	EnquiryForm    bool              `json:"enquiry_form"`
	ResetButton    bool              `json:"reset_button"`
}

// Widget issues a visitor token for the bot after the origin and
// entitlement checks pass.
func (h *EmbedHandler) Widget(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	bot, ok := h.gate.bot(w, r.Context(), chi.URLParam(r, "publicKey"))
	if !ok {
		return
	}
	origin := access.ExtractOrigin(r)
	if _, denial := h.gate.guard.CheckOrigin(bot, origin, h.gate.servingHost(r), true); denial != nil {
		log.Warn().Str("public_key", bot.PublicKey).Str("origin", origin).Msg("widget origin denied")
		response.Forbidden(w, denial.WidgetMessage())
		return
	}

	snap, ok := h.gate.snapshot(w, r.Context(), bot)
	if !ok {
		return
	}

	resp := widgetResponse{
		PublicKey:      bot.PublicKey,
		BotName:        bot.Name,
		AvailableModes: snap.Capabilities.Available,
		DefaultMode:    snap.Capabilities.Default,
		Appearance:     bot.Appearance,
	}
	if ws := snap.Workspace; ws != nil {
		resp.Footer = ws.BotFooter
		resp.EnquiryForm = ws.EnableEnquiryForm
		resp.ResetButton = ws.EnableResetButton
	}

	if denial := h.gate.guard.CheckEntitlement(bot, snap, ""); denial != nil {
		resp.Blocked = true
		resp.BlockReason = string(denial.Reason)
		resp.BlockMessage = denial.WidgetMessage()
		response.OK(w, resp)
		return
	}

	token, exp, err := h.gate.guard.Tokens().Issue(bot.ID, bot.PublicKey)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID.String()).Msg("failed to issue widget token")
		response.InternalError(w, "failed to issue token")
		return
	}
	resp.Token = token
	resp.ExpiresAt = &exp

	response.OK(w, resp)
}

// Config returns the bot's public styling. No token is needed.
func (h *EmbedHandler) Config(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.gate.bot(w, r.Context(), chi.URLParam(r, "publicKey"))
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"public_key": bot.PublicKey,
		"bot_name":   bot.Name,
		"appearance": bot.Appearance,
	})
}

// QA returns the bot's question tree when the plan includes Q&A
func (h *EmbedHandler) QA(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.gate.bot(w, r.Context(), chi.URLParam(r, "publicKey"))
	if !ok {
		return
	}
	if !h.gate.origin(w, r, bot, false) {
		return
	}
	snap, ok := h.gate.snapshot(w, r.Context(), bot)
	if !ok {
		return
	}

	if denial := h.gate.guard.CheckEntitlement(bot, snap, domain.ModeQA); denial != nil {
		response.OK(w, map[string]any{
			"nodes":   []*domain.QATreeNode{},
			"blocked": true,
			"message": denial.Message,
		})
		return
	}

	tree, err := h.qa.Tree(r.Context(), bot.ID)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID.String()).Msg("failed to load q&a tree")
		response.InternalError(w, "failed to load questions")
		return
	}
	if tree == nil {
		tree = []*domain.QATreeNode{}
	}
	response.OK(w, map[string]any{"nodes": tree})
}

type enquiryRequest struct {
	PublicKey string `json:"public_key" validate:"required"`
	service.EnquiryInput
}

// Enquiry records a visitor's contact details
func (h *EmbedHandler) Enquiry(w http.ResponseWriter, r *http.Request) {
	var req enquiryRequest
	if !decode(w, r, &req) {
		return
	}

	bot, ok := h.gate.bot(w, r.Context(), req.PublicKey)
	if !ok {
		return
	}
	if !h.gate.origin(w, r, bot, false) {
		return
	}
	snap, ok := h.gate.snapshot(w, r.Context(), bot)
	if !ok {
		return
	}

	enquiry, err := h.enquiries.Submit(r.Context(), bot, snap.Workspace, req.EnquiryInput)
	switch {
	case errors.Is(err, domain.ErrEnquiryDisabled):
		response.Forbidden(w, "Enquiry form is not enabled.")
		return
	case errors.Is(err, domain.ErrEnquiryIncomplete):
		response.BadRequest(w, "Please fill in at least two of name, phone and email.")
		return
	case err != nil:
		log.Error().Err(err).Str("bot_id", bot.ID.String()).Msg("failed to store enquiry")
		response.InternalError(w, "failed to store enquiry")
		return
	}

	response.Created(w, map[string]any{"id": enquiry.ID})
}
