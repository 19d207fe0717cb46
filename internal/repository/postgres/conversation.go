package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ConversationRepository handles conversation and message data access
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, bot_id, session_id, effective_mode, created_at, updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.BotID, &c.SessionID, &c.EffectiveMode, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreate returns the conversation for (bot, session), creating it
// with the given mode when absent.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, botID uuid.UUID, sessionID string, mode domain.Mode) (*domain.Conversation, error) {
	now := time.Now().UTC()
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (bot_id, session_id) DO NOTHING`,
		uuid.New(), botID, sessionID, mode, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	conv, err := r.Get(ctx, botID, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("failed to load conversation: %w", domain.ErrNotFound)
	}
	return conv, nil
}

// Get retrieves the conversation for (bot, session)
func (r *ConversationRepository) Get(ctx context.Context, botID uuid.UUID, sessionID string) (*domain.Conversation, error) {
	conv, err := scanConversation(r.db.Pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE bot_id = $1 AND session_id = $2`,
		botID, sessionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// Append inserts msg under a row lock on the conversation so the mode
// flip and the message id are decided together.
func (r *ConversationRepository) Append(ctx context.Context, conversationID uuid.UUID, msg *domain.Message, flipToLive bool) (*domain.AppendResult, error) {
	sources, err := marshalSources(msg.Sources)
	if err != nil {
		return nil, err
	}

	var result *domain.AppendResult
	err = r.db.withTx(ctx, func(tx pgx.Tx) error {
		var mode domain.Mode
		err := tx.QueryRow(ctx,
			`SELECT effective_mode FROM conversations WHERE id = $1 FOR UPDATE`,
			conversationID,
		).Scan(&mode)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to lock conversation: %w", err)
		}

		now := time.Now().UTC()
		next := mode
		if flipToLive && mode != domain.ModeLive {
			next = domain.ModeLive
		}
		if _, err := tx.Exec(ctx,
			`UPDATE conversations SET effective_mode = $2, updated_at = $3 WHERE id = $1`,
			conversationID, next, now,
		); err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}

		stored := *msg
		stored.ConversationID = conversationID
		stored.CreatedAt = now
		if err := tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender, text, sources, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			conversationID, stored.Sender, stored.Text, sources, now,
		).Scan(&stored.ID); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		result = &domain.AppendResult{Message: &stored, PreviousMode: mode, Mode: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAfter returns messages with id greater than afterID in ascending order
func (r *ConversationRepository) ListAfter(ctx context.Context, conversationID uuid.UUID, afterID int64, limit int) ([]domain.Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, conversation_id, sender, text, sources, created_at
		FROM messages
		WHERE conversation_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`,
		conversationID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var sources []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Text, &sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func marshalSources(sources []string) ([]byte, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}
	return b, nil
}
