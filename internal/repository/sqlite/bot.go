package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
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

func scanBot(row rowScanner) (*domain.Bot, error) {
	var bot domain.Bot
	var provider, model sql.NullString
	var domains, appearance string
	var created, updated int64

	err := row.Scan(
		&bot.ID,
		&bot.WorkspaceID,
		&bot.Name,
		&bot.PublicKey,
		&bot.PreferredMode,
		&provider,
		&model,
		&bot.EncryptedAIKey,
		&domains,
		&bot.Enabled,
		&appearance,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	bot.AIProvider = provider.String
	bot.AIModel = model.String
	bot.AllowedDomains = domain.ParseAllowedDomains(domains)
	if appearance != "" {
		if err := json.Unmarshal([]byte(appearance), &bot.Appearance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal appearance: %w", err)
		}
	}
	bot.CreatedAt = fromMillis(created)
	bot.UpdatedAt = fromMillis(updated)
	return &bot, nil
}

// Create creates a new bot
func (r *BotRepository) Create(ctx context.Context, bot *domain.Bot) error {
	appearance, err := json.Marshal(bot.Appearance)
	if err != nil {
		return fmt.Errorf("failed to marshal appearance: %w", err)
	}

	_, err = r.db.conn.ExecContext(ctx, `
		INSERT INTO bots (`+botColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID,
		bot.WorkspaceID,
		bot.Name,
		bot.PublicKey,
		bot.PreferredMode,
		nullString(bot.AIProvider),
		nullString(bot.AIModel),
		nullBlob(bot.EncryptedAIKey),
		strings.Join(bot.AllowedDomains, "\n"),
		boolInt(bot.Enabled),
		string(appearance),
		toMillis(bot.CreatedAt),
		toMillis(bot.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	return nil
}

// GetByID retrieves a bot by ID
func (r *BotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	bot, err := scanBot(r.db.conn.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return bot, nil
}

// GetByPublicKey retrieves a bot by its public key
func (r *BotRepository) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Bot, error) {
	bot, err := scanBot(r.db.conn.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE public_key = ?`, publicKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bot by public key: %w", err)
	}
	return bot, nil
}

// ListByWorkspace lists all bots of a workspace
func (r *BotRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Bot, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+botColumns+` FROM bots WHERE workspace_id = ? ORDER BY created_at`,
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

	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE bots
		SET name = ?, preferred_mode = ?, ai_provider = ?, ai_model = ?, ai_api_key = ?,
			allowed_domains = ?, enabled = ?, appearance = ?, updated_at = ?
		WHERE id = ?`,
		bot.Name,
		bot.PreferredMode,
		nullString(bot.AIProvider),
		nullString(bot.AIModel),
		nullBlob(bot.EncryptedAIKey),
		strings.Join(bot.AllowedDomains, "\n"),
		boolInt(bot.Enabled),
		string(appearance),
		toMillis(bot.UpdatedAt),
		bot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	return requireRow(res)
}

func nullBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
