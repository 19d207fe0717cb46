package access

import (
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/metrics"
	"github.com/Rrens/redbot/internal/security"
)

// Reason names why a request was denied
type Reason string

const (
	ReasonDomain       Reason = "domain"
	ReasonDisabled     Reason = "disabled"
	ReasonNotApproved  Reason = "not_approved"
	ReasonOutOfPlan    Reason = "out_of_plan"
	ReasonInactive     Reason = "inactive"
	ReasonModeExcluded Reason = "mode_not_included"
)

// How an origin was let through
const (
	AllowedByList       = "allowed_domains"
	AllowedBySameOrigin = "same_origin"
	AllowedByDevLocal   = "debug_local"
	AllowedByDevNoOrig  = "debug_no_origin"
	AllowedByNoOrigin   = "no_origin"
)

var widgetMessages = map[Reason]string{
	ReasonDomain:      "This domain is not allowed for this bot.",
	ReasonDisabled:    "This bot is disabled by the owner.",
	ReasonNotApproved: "Workspace is not approved yet.",
	ReasonOutOfPlan:   "You’re out of plan.",
	ReasonInactive:    "Workspace is not active.",
}

var chatMessages = map[Reason]string{
	ReasonDomain:      "Origin not allowed for this bot.",
	ReasonDisabled:    "Bot is disabled by the owner.",
	ReasonNotApproved: "This workspace is not approved yet.",
	ReasonOutOfPlan:   "You’re out of plan. Please renew to continue.",
	ReasonInactive:    "You’re out of plan. Please renew to continue.",
}

var modeMessages = map[domain.Mode]string{
	domain.ModeAI:   "AI chat is not included in this plan.",
	domain.ModeLive: "Live chat is not included in this plan.",
	domain.ModeQA:   "Q&A is not included in this plan.",
}

// Denial is a refused request with a visitor-safe explanation
type Denial struct {
	Reason  Reason
	Mode    domain.Mode
	Message string
}

func (d *Denial) Error() string {
	return d.Message
}

// WidgetMessage is the text shown in a blocked widget
func (d *Denial) WidgetMessage() string {
	if m, ok := widgetMessages[d.Reason]; ok {
		return m
	}
	return d.Message
}

// Guard decides whether an embed or chat request may proceed
type Guard struct {
	tokens  *security.TokenManager
	devMode bool
}

// NewGuard creates a guard. devMode lets loopback origins through.
func NewGuard(tokens *security.TokenManager, devMode bool) *Guard {
	return &Guard{tokens: tokens, devMode: devMode}
}

// Tokens returns the token manager used for validation
func (g *Guard) Tokens() *security.TokenManager {
	return g.tokens
}

// Authenticate validates a bot access token. The error is one of
// security.ErrTokenMissing, ErrTokenExpired or ErrTokenInvalid.
func (g *Guard) Authenticate(raw string) (*security.Claims, error) {
	return g.tokens.Validate(raw)
}

// CheckOrigin applies the bot's allow-list to a declared origin.
// requireOrigin denies requests that declare no origin at all, outside
// dev mode.
func (g *Guard) CheckOrigin(bot *domain.Bot, origin, servingHost string, requireOrigin bool) (string, *Denial) {
	host := HostOf(origin)

	switch {
	case origin == "" && !requireOrigin:
		return AllowedByNoOrigin, nil
	case host != "" && HostAllowed(host, bot.AllowedDomains):
		return AllowedByList, nil
	case host != "" && host == servingHost:
		return AllowedBySameOrigin, nil
	case g.devMode && host != "" && IsLocalHost(host):
		return AllowedByDevLocal, nil
	case g.devMode && origin == "":
		return AllowedByDevNoOrig, nil
	}

	return "", g.deny(ReasonDomain, "", chatMessages[ReasonDomain])
}

// CheckEntitlement re-checks live entitlement after origin and token have
// passed. mode may be empty when the request does not target one mode.
func (g *Guard) CheckEntitlement(bot *domain.Bot, snap *entitlement.Snapshot, mode domain.Mode) *Denial {
	switch {
	case !bot.Enabled:
		return g.deny(ReasonDisabled, mode, chatMessages[ReasonDisabled])
	case !snap.Approved():
		return g.deny(ReasonNotApproved, mode, chatMessages[ReasonNotApproved])
	case !snap.Operational():
		if snap.Lapsed {
			return g.deny(ReasonOutOfPlan, mode, chatMessages[ReasonOutOfPlan])
		}
		return g.deny(ReasonInactive, mode, chatMessages[ReasonInactive])
	case mode != "" && !snap.Includes(mode):
		return g.deny(ReasonModeExcluded, mode, modeMessages[mode])
	}
	return nil
}

func (g *Guard) deny(reason Reason, mode domain.Mode, msg string) *Denial {
	metrics.AccessDenials.WithLabelValues(string(reason)).Inc()
	return &Denial{Reason: reason, Mode: mode, Message: msg}
}
