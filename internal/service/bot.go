package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
)

// BotService handles bot configuration
type BotService struct {
	bots         domain.BotRepository
	entitlements *entitlement.Service
	cipher       domain.SecretCipher
}

// NewBotService creates a new bot service. bots may be a caching
// repository; updates go through it so cached lookups are refreshed.
func NewBotService(bots domain.BotRepository, entitlements *entitlement.Service, cipher domain.SecretCipher) *BotService {
	return &BotService{
		bots:         bots,
		entitlements: entitlements,
		cipher:       cipher,
	}
}

// Create creates a bot. The workspace must be approved with an active
// plan, and AI fields must match whether the plan includes AI.
func (s *BotService) Create(ctx context.Context, input domain.BotCreate) (*domain.Bot, error) {
	snap, err := s.entitlements.Snapshot(ctx, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !snap.Operational() {
		return nil, domain.ErrWorkspaceNotReady
	}

	mode := input.PreferredMode
	if mode == "" {
		mode = domain.ModeAI
	}
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = domain.DefaultBotName
	}

	now := time.Now()
	bot := &domain.Bot{
		ID:             uuid.New(),
		WorkspaceID:    input.WorkspaceID,
		Name:           name,
		PublicKey:      domain.NewPublicKey(),
		PreferredMode:  mode,
		AIProvider:     strings.ToLower(strings.TrimSpace(input.AIProvider)),
		AIModel:        strings.TrimSpace(input.AIModel),
		AllowedDomains: domain.ParseAllowedDomains(input.AllowedDomains),
		Enabled:        true,
		Appearance:     input.Appearance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := bot.WriteSecret(s.cipher, strings.TrimSpace(input.AIKey)); err != nil {
		return nil, err
	}
	if err := bot.CheckAIFields(snap.Includes(domain.ModeAI)); err != nil {
		return nil, err
	}

	if err := s.bots.Create(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return bot, nil
}

// GetByID retrieves a bot
func (s *BotService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	bot, err := s.bots.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	if bot == nil {
		return nil, domain.ErrNotFound
	}
	return bot, nil
}

// GetByPublicKey retrieves a bot by its embed key
func (s *BotService) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Bot, error) {
	bot, err := s.bots.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	if bot == nil {
		return nil, domain.ErrNotFound
	}
	return bot, nil
}

// ListByWorkspace retrieves all bots of a workspace
func (s *BotService) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Bot, error) {
	bots, err := s.bots.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	return bots, nil
}

// Update applies changes to a bot, re-checking the AI field rule against
// the workspace's current plan.
func (s *BotService) Update(ctx context.Context, id uuid.UUID, input domain.BotUpdate) (*domain.Bot, error) {
	bot, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.entitlements.Snapshot(ctx, bot.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			bot.Name = name
		}
	}
	if input.PreferredMode != nil {
		if !input.PreferredMode.Valid() {
			return nil, domain.ErrInvalidMode
		}
		bot.PreferredMode = *input.PreferredMode
	}
	if input.AIProvider != nil {
		bot.AIProvider = strings.ToLower(strings.TrimSpace(*input.AIProvider))
	}
	if input.AIModel != nil {
		bot.AIModel = strings.TrimSpace(*input.AIModel)
	}
	if input.AIKey != nil && strings.TrimSpace(*input.AIKey) != "" {
		if err := bot.WriteSecret(s.cipher, strings.TrimSpace(*input.AIKey)); err != nil {
			return nil, err
		}
	}
	if input.AllowedDomains != nil {
		bot.AllowedDomains = domain.ParseAllowedDomains(*input.AllowedDomains)
	}
	if input.Enabled != nil {
		bot.Enabled = *input.Enabled
	}
	if input.Appearance != nil {
		bot.Appearance = *input.Appearance
	}

	if err := bot.CheckAIFields(snap.Includes(domain.ModeAI)); err != nil {
		return nil, err
	}

	bot.UpdatedAt = time.Now()
	if err := s.bots.Update(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to update bot: %w", err)
	}
	return bot, nil
}
