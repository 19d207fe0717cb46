package access_test

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/security"
)

func TestHostAllowed(t *testing.T) {
	allowed := []string{"example.com", ".shop.test", "Upper.ORG"}

	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"app.example.com", true},
		{"deep.app.example.com", true},
		{"example.com.evil.com", false},
		{"badexample.com", false},
		{"shop.test", true},
		{"eu.shop.test", true},
		{"upper.org", true},
		{"example.com.", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, access.HostAllowed(tt.host, allowed))
		})
	}

	assert.False(t, access.HostAllowed("example.com", nil))
}

func TestExtractOrigin(t *testing.T) {
	r := httptest.NewRequest("GET", "/embed/widget/pk?origin=https://param.test", nil)
	r.Header.Set("Origin", "https://header.test")
	assert.Equal(t, "https://param.test", access.ExtractOrigin(r))

	r = httptest.NewRequest("GET", "/embed/widget/pk", nil)
	r.Header.Set("Origin", "https://header.test")
	r.Header.Set("Referer", "https://referer.test/page?x=1")
	assert.Equal(t, "https://header.test", access.ExtractOrigin(r))

	r = httptest.NewRequest("GET", "/embed/widget/pk", nil)
	r.Header.Set("Referer", "https://referer.test:8443/page?x=1")
	assert.Equal(t, "https://referer.test:8443", access.ExtractOrigin(r))

	r = httptest.NewRequest("GET", "/embed/widget/pk", nil)
	assert.Equal(t, "", access.ExtractOrigin(r))
}

func TestRequestHost(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Host = "Bots.Redbot.io:8080"
	assert.Equal(t, "bots.redbot.io", access.RequestHost(r))
	assert.Equal(t, "app.example.com", access.HostOf("https://App.Example.com:443/x"))
}

func newGuard(devMode bool) *access.Guard {
	tokens := security.NewTokenManager("guard-secret", 30*time.Minute, 5*time.Second, 0)
	return access.NewGuard(tokens, devMode)
}

func TestGuard_CheckOrigin(t *testing.T) {
	bot := &domain.Bot{AllowedDomains: []string{"example.com"}}
	prod := newGuard(false)
	dev := newGuard(true)

	by, denial := prod.CheckOrigin(bot, "https://app.example.com", "bots.redbot.io", true)
	assert.Nil(t, denial)
	assert.Equal(t, access.AllowedByList, by)

	_, denial = prod.CheckOrigin(bot, "https://example.com.evil.com", "bots.redbot.io", true)
	require.NotNil(t, denial)
	assert.Equal(t, access.ReasonDomain, denial.Reason)
	assert.Equal(t, "This domain is not allowed for this bot.", denial.WidgetMessage())
	assert.Equal(t, "Origin not allowed for this bot.", denial.Message)

	by, denial = prod.CheckOrigin(bot, "https://bots.redbot.io", "bots.redbot.io", true)
	assert.Nil(t, denial)
	assert.Equal(t, access.AllowedBySameOrigin, by)

	_, denial = prod.CheckOrigin(bot, "http://localhost:5500", "bots.redbot.io", true)
	assert.NotNil(t, denial)
	by, denial = dev.CheckOrigin(bot, "http://localhost:5500", "bots.redbot.io", true)
	assert.Nil(t, denial)
	assert.Equal(t, access.AllowedByDevLocal, by)

	_, denial = prod.CheckOrigin(bot, "", "bots.redbot.io", true)
	assert.NotNil(t, denial)
	by, denial = dev.CheckOrigin(bot, "", "bots.redbot.io", true)
	assert.Nil(t, denial)
	assert.Equal(t, access.AllowedByDevNoOrig, by)

	by, denial = prod.CheckOrigin(bot, "", "bots.redbot.io", false)
	assert.Nil(t, denial)
	assert.Equal(t, access.AllowedByNoOrigin, by)

	empty := &domain.Bot{}
	_, denial = prod.CheckOrigin(empty, "https://example.com", "bots.redbot.io", true)
	assert.NotNil(t, denial, "empty allow-list denies cross-origin access")
}

func TestGuard_CheckEntitlement(t *testing.T) {
	g := newGuard(false)
	now := time.Now()
	lifetime := func(b domain.Bundle) domain.Plan {
		return domain.Plan{Bundle: b, Term: domain.TermLifetime, Active: true, StartAt: now.Add(-time.Hour)}
	}
	ended := now.Add(-time.Minute)
	expired := domain.Plan{Bundle: domain.BundleFull, Term: domain.TermLimited, Active: true, StartAt: now.Add(-time.Hour), EndAt: &ended}

	approved := &domain.Workspace{ID: uuid.New(), Approved: true}
	enabled := &domain.Bot{Enabled: true}

	tests := []struct {
		name   string
		bot    *domain.Bot
		ws     *domain.Workspace
		plans  []domain.Plan
		mode   domain.Mode
		reason access.Reason
		msg    string
	}{
		{"allowed", enabled, approved, []domain.Plan{lifetime(domain.BundleAIOnly)}, domain.ModeAI, "", ""},
		{"disabled bot", &domain.Bot{}, approved, []domain.Plan{lifetime(domain.BundleFull)}, domain.ModeAI, access.ReasonDisabled, "Bot is disabled by the owner."},
		{"unapproved", enabled, &domain.Workspace{}, []domain.Plan{lifetime(domain.BundleFull)}, domain.ModeAI, access.ReasonNotApproved, "This workspace is not approved yet."},
		{"expired limited plan", enabled, approved, []domain.Plan{expired}, domain.ModeAI, access.ReasonOutOfPlan, "You’re out of plan. Please renew to continue."},
		{"no plan", enabled, approved, nil, domain.ModeAI, access.ReasonInactive, "You’re out of plan. Please renew to continue."},
		{"ai excluded", enabled, approved, []domain.Plan{lifetime(domain.BundleLiveOnly)}, domain.ModeAI, access.ReasonModeExcluded, "AI chat is not included in this plan."},
		{"no mode requested", enabled, approved, []domain.Plan{lifetime(domain.BundleLiveOnly)}, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := entitlement.NewSnapshot(tt.ws, tt.plans, now)
			denial := g.CheckEntitlement(tt.bot, snap, tt.mode)
			if tt.reason == "" {
				assert.Nil(t, denial)
				return
			}
			require.NotNil(t, denial)
			assert.Equal(t, tt.reason, denial.Reason)
			assert.Equal(t, tt.msg, denial.Message)
		})
	}

	snap := entitlement.NewSnapshot(approved, []domain.Plan{expired}, now)
	denial := g.CheckEntitlement(enabled, snap, "")
	require.NotNil(t, denial)
	assert.Equal(t, "You’re out of plan.", denial.WidgetMessage())
}

func TestGuard_Authenticate(t *testing.T) {
	g := newGuard(false)
	botID := uuid.New()

	token, _, err := g.Tokens().Issue(botID, "pk123")
	require.NoError(t, err)

	claims, err := g.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, botID, claims.BotID)

	_, err = g.Authenticate("")
	assert.True(t, errors.Is(err, security.ErrTokenMissing))
	_, err = g.Authenticate("not.a.token")
	assert.True(t, errors.Is(err, security.ErrTokenInvalid))
}
