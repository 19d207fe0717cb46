package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token validation errors. Callers map each to a distinct response.
var (
	ErrTokenMissing = errors.New("missing token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Token roles
const (
	RoleVisitor = "visitor"
	RoleAgent   = "agent"
)

const tokenIssuer = "redbot"

// Claims identify the bot a widget (or agent console) is talking to
type Claims struct {
	BotID     uuid.UUID `json:"bot_id"`
	PublicKey string    `json:"public_key"`
	Role      string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAgent reports whether the token was issued to a live-chat operator
func (c *Claims) IsAgent() bool {
	return c.Role == RoleAgent
}

// TokenManager issues and validates short-lived bot access tokens
type TokenManager struct {
	secret        []byte
	ttl           time.Duration
	agentTTL      time.Duration
	notBeforeSkew time.Duration
	leeway        time.Duration
	now           func() time.Time
}

// TokenOption customizes a TokenManager
type TokenOption func(*TokenManager)

// WithClock overrides the time source
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// WithAgentTTL sets the lifetime of agent tokens
func WithAgentTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) { m.agentTTL = ttl }
}

// NewTokenManager creates a token manager. notBeforeSkew backdates nbf so
// widgets with slightly slow clocks accept fresh tokens; leeway is the
// clock-skew allowance applied on validation.
func NewTokenManager(secret string, ttl, notBeforeSkew, leeway time.Duration, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		secret:        []byte(secret),
		ttl:           ttl,
		agentTTL:      ttl,
		notBeforeSkew: notBeforeSkew,
		leeway:        leeway,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a visitor token for the bot
func (m *TokenManager) Issue(botID uuid.UUID, publicKey string) (string, time.Time, error) {
	return m.issue(botID, publicKey, RoleVisitor, m.ttl)
}

// IssueAgent creates an operator token for the bot's live chat
func (m *TokenManager) IssueAgent(botID uuid.UUID, publicKey string) (string, time.Time, error) {
	return m.issue(botID, publicKey, RoleAgent, m.agentTTL)
}

func (m *TokenManager) issue(botID uuid.UUID, publicKey, role string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		BotID:     botID,
		PublicKey: publicKey,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   publicKey,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-m.notBeforeSkew)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate parses a token and returns its claims
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PublicKey == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// TTL returns the visitor token lifetime
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}
