package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/api/response"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/security"
)

// Gate resolves the bot a widget request addresses and runs the access
// checks shared by the embed, chat and live-chat handlers.
type Gate struct {
	bots         domain.BotRepository
	entitlements *entitlement.Service
	guard        *access.Guard
	publicHost   string
}

// NewGate creates a gate. publicHost, when set, is the host widgets are
// served from; otherwise the request's Host is used.
func NewGate(bots domain.BotRepository, entitlements *entitlement.Service, guard *access.Guard, publicHost string) *Gate {
	return &Gate{bots: bots, entitlements: entitlements, guard: guard, publicHost: publicHost}
}

// visit is an authenticated widget request
type visit struct {
	Claims *security.Claims
	Bot    *domain.Bot
	Snap   *entitlement.Snapshot
}

var tokenMessages = map[error]string{
	security.ErrTokenMissing: "Missing JWT",
	security.ErrTokenExpired: "Token expired",
	security.ErrTokenInvalid: "Invalid token",
}

func tokenMessage(err error) string {
	for target, msg := range tokenMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return tokenMessages[security.ErrTokenInvalid]
}

func (g *Gate) servingHost(r *http.Request) string {
	if g.publicHost != "" {
		return access.HostOf("//" + g.publicHost)
	}
	return access.RequestHost(r)
}

// bot loads a bot by public key. Unknown keys write a 404.
func (g *Gate) bot(w http.ResponseWriter, ctx context.Context, publicKey string) (*domain.Bot, bool) {
	if publicKey == "" {
		response.NotFound(w, "Bot not found")
		return nil, false
	}
	bot, err := g.bots.GetByPublicKey(ctx, publicKey)
	if err != nil {
		log.Error().Err(err).Str("public_key", publicKey).Msg("failed to load bot")
		response.InternalError(w, "failed to load bot")
		return nil, false
	}
	if bot == nil {
		response.NotFound(w, "Bot not found")
		return nil, false
	}
	return bot, true
}

// origin applies the bot's allow-list to the request. A denial writes a 403.
func (g *Gate) origin(w http.ResponseWriter, r *http.Request, bot *domain.Bot, requireOrigin bool) bool {
	origin := access.ExtractOrigin(r)
	how, denial := g.guard.CheckOrigin(bot, origin, g.servingHost(r), requireOrigin)
	if denial != nil {
		log.Warn().
			Str("public_key", bot.PublicKey).
			Str("origin", origin).
			Msg("origin denied")
		response.Forbidden(w, denial.Message)
		return false
	}
	log.Debug().Str("public_key", bot.PublicKey).Str("allowed_by", how).Msg("origin allowed")
	return true
}

// snapshot evaluates the bot's workspace entitlement for this request
func (g *Gate) snapshot(w http.ResponseWriter, ctx context.Context, bot *domain.Bot) (*entitlement.Snapshot, bool) {
	snap, err := g.entitlements.Snapshot(ctx, bot.WorkspaceID)
	if err != nil {
		log.Error().Err(err).Str("bot_id", bot.ID.String()).Msg("failed to evaluate entitlement")
		response.InternalError(w, "failed to load workspace")
		return nil, false
	}
	return snap, true
}

// authorize validates the access token, resolves its bot and checks the
// request origin. It writes 401, 404 or 403 responses itself.
func (g *Gate) authorize(w http.ResponseWriter, r *http.Request, rawToken string, requireOrigin bool) (*visit, bool) {
	claims, err := g.guard.Authenticate(rawToken)
	if err != nil {
		response.Unauthorized(w, tokenMessage(err))
		return nil, false
	}

	bot, ok := g.bot(w, r.Context(), claims.PublicKey)
	if !ok {
		return nil, false
	}
	if bot.ID != claims.BotID {
		response.Unauthorized(w, tokenMessages[security.ErrTokenInvalid])
		return nil, false
	}
	if !g.origin(w, r, bot, requireOrigin) {
		return nil, false
	}

	snap, ok := g.snapshot(w, r.Context(), bot)
	if !ok {
		return nil, false
	}
	return &visit{Claims: claims, Bot: bot, Snap: snap}, true
}
