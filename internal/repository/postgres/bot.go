package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BotRepository handles bot data access
type BotRepository struct {
	db *DB
}

// NewBotRepository creates a new bot repository
func NewBotRepository(db *DB) *BotRepository {
	return &BotRepository{db: db}
}

const botColumns = `id, workspace_id, name, public_key, preferred_mode, ai_provider, ai_model,
	ai_api_key, allowed_domains, enabled, appearance, created_at, updated_at`

func scanBot(row pgx.Row) (*domain.Bot, error) {
	var bot domain.Bot
	var provider, model *string
	var appearance []byte

	err := row.Scan(
		&bot.ID,
		&bot.WorkspaceID,
		&bot.Name,
		&bot.PublicKey,
		&bot.PreferredMode,
		&provider,
		&model,
		&bot.EncryptedAIKey,
		&bot.AllowedDomains,
		&bot.Enabled,
		&appearance,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if provider != nil {
		bot.AIProvider = *provider
	}
	if model != nil {
		bot.AIModel = *model
	}
	if len(appearance) > 0 {
		if err := json.Unmarshal(appearance, &bot.Appearance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal appearance: %w", err)
		}
	}
	return &bot, nil
}

// Create creates a new bot
func (r *BotRepository) Create(ctx context.Context, bot *domain.Bot) error {
	appearance, err := json.Marshal(bot.Appearance)
	if err != nil {
		return fmt.Errorf("failed to marshal appearance: %w", err)
	}

	query := `
		INSERT INTO bots (` + botColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		bot.ID,
		bot.WorkspaceID,
		bot.Name,
		bot.PublicKey,
		bot.PreferredMode,
		nullString(bot.AIProvider),
		nullString(bot.AIModel),
		nullBytes(bot.EncryptedAIKey),
		domainsOrEmpty(bot.AllowedDomains),
		bot.Enabled,
		appearance,
		bot.CreatedAt,
		bot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	return nil
}

// GetByID retrieves a bot by ID
func (r *BotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	bot, err := scanBot(r.db.Pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return bot, nil
}

// GetByPublicKey retrieves a bot by its public key
func (r *BotRepository) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Bot, error) {
	bot, err := scanBot(r.db.Pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE public_key = $1`, publicKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bot by public key: %w", err)
	}
	return bot, nil
}

// ListByWorkspace lists all bots of a workspace
func (r *BotRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Bot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+botColumns+`
		FROM bots
		WHERE workspace_id = $1
		ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, *bot)
	}

	return bots, rows.Err()
}

// Update updates a bot
func (r *BotRepository) Update(ctx context.Context, bot *domain.Bot) error {
	appearance, err := json.Marshal(bot.Appearance)
	if err != nil {
		return fmt.Errorf("failed to marshal appearance: %w", err)
	}

	query := `
		UPDATE bots
		SET name = $2, preferred_mode = $3, ai_provider = $4, ai_model = $5, ai_api_key = $6,
			allowed_domains = $7, enabled = $8, appearance = $9, updated_at = $10
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		bot.ID,
		bot.Name,
		bot.PreferredMode,
		nullString(bot.AIProvider),
		nullString(bot.AIModel),
		nullBytes(bot.EncryptedAIKey),
		domainsOrEmpty(bot.AllowedDomains),
		bot.Enabled,
		appearance,
		bot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func domainsOrEmpty(d []string) []string {
	if d == nil {
		return []string{}
	}
	return d
}
