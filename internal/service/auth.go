package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/security"
)

// IssuedToken is a signed access token and its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// AuthService issues access tokens for bots
type AuthService struct {
	bots   domain.BotRepository
	tokens *security.TokenManager
}

// NewAuthService creates a new auth service
func NewAuthService(bots domain.BotRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{bots: bots, tokens: tokens}
}

// IssueAgent signs a token that lets a live-chat operator join a bot's
// conversations.
func (s *AuthService) IssueAgent(ctx context.Context, publicKey string) (*IssuedToken, error) {
	bot, err := s.bots.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	if bot == nil {
		return nil, domain.ErrNotFound
	}

	token, exp, err := s.tokens.IssueAgent(bot.ID, bot.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to issue agent token: %w", err)
	}
	return &IssuedToken{Token: token, ExpiresAt: exp, Role: security.RoleAgent}, nil
}
