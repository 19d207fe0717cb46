package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	botCachePrefix  = "bot:pk:"
	DefaultCacheTTL = 30 * time.Second
)

// cachedBot keeps the encrypted key, which domain.Bot hides from JSON
type cachedBot struct {
	domain.Bot
	AIKey []byte `json:"ai_key,omitempty"`
}

// BotCache caches bot lookups by public key in front of a BotRepository.
// Widget and chat requests resolve the bot on every call.
type BotCache struct {
	domain.BotRepository
	client *Client
	ttl    time.Duration
}

// NewBotCache wraps repo with a Redis read-through cache
func NewBotCache(client *Client, repo domain.BotRepository, ttl time.Duration) *BotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &BotCache{BotRepository: repo, client: client, ttl: ttl}
}

func botKey(publicKey string) string {
	return botCachePrefix + publicKey
}

// GetByPublicKey serves from cache, falling back to the repository
func (c *BotCache) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Bot, error) {
	data, err := c.client.rdb.Get(ctx, botKey(publicKey)).Bytes()
	if err == nil {
		var entry cachedBot
		if err := json.Unmarshal(data, &entry); err == nil {
			entry.Bot.EncryptedAIKey = entry.AIKey
			return &entry.Bot, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("bot cache read failed")
	}

	bot, err := c.BotRepository.GetByPublicKey(ctx, publicKey)
	if err != nil || bot == nil {
		return bot, err
	}

	if err := c.set(ctx, bot); err != nil {
		log.Warn().Err(err).Msg("bot cache write failed")
	}
	return bot, nil
}

// Update writes through and drops the cached entry
func (c *BotCache) Update(ctx context.Context, bot *domain.Bot) error {
	if err := c.BotRepository.Update(ctx, bot); err != nil {
		return err
	}
	return c.Invalidate(ctx, bot.PublicKey)
}

func (c *BotCache) set(ctx context.Context, bot *domain.Bot) error {
	data, err := json.Marshal(cachedBot{Bot: *bot, AIKey: bot.EncryptedAIKey})
	if err != nil {
		return fmt.Errorf("failed to marshal bot: %w", err)
	}
	return c.client.rdb.Set(ctx, botKey(bot.PublicKey), data, c.ttl).Err()
}

// Invalidate removes the cached entry for a public key
func (c *BotCache) Invalidate(ctx context.Context, publicKey string) error {
	return c.client.rdb.Del(ctx, botKey(publicKey)).Err()
}

// InvalidateWorkspace removes cached entries of every bot in a workspace
func (c *BotCache) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	bots, err := c.BotRepository.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if len(bots) == 0 {
		return nil
	}
	keys := make([]string, 0, len(bots))
	for _, b := range bots {
		keys = append(keys, botKey(b.PublicKey))
	}
	return c.client.rdb.Del(ctx, keys...).Err()
}

// FlushAll removes all cached bots
func (c *BotCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := botCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
