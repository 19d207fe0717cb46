package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
)

// ConversationRepository handles conversation and message data access
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the conversation for (bot, session), creating it
// with the given mode when absent.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, botID uuid.UUID, sessionID string, mode domain.Mode) (*domain.Conversation, error) {
	now := toMillis(time.Now())
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO conversations (id, bot_id, session_id, effective_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (bot_id, session_id) DO NOTHING`,
		uuid.New(), botID, sessionID, mode, now, now,
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
	var c domain.Conversation
	var created, updated int64

	err := r.db.conn.QueryRowContext(ctx, `
		SELECT id, bot_id, session_id, effective_mode, created_at, updated_at
		FROM conversations
		WHERE bot_id = ? AND session_id = ?`,
		botID, sessionID,
	).Scan(&c.ID, &c.BotID, &c.SessionID, &c.EffectiveMode, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// Append inserts msg and applies the LIVE flip in one transaction
func (r *ConversationRepository) Append(ctx context.Context, conversationID uuid.UUID, msg *domain.Message, flipToLive bool) (*domain.AppendResult, error) {
	var sources sql.NullString
	if len(msg.Sources) > 0 {
		b, err := json.Marshal(msg.Sources)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sources: %w", err)
		}
		sources = sql.NullString{String: string(b), Valid: true}
	}

	var result *domain.AppendResult
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var mode domain.Mode
		err := tx.QueryRowContext(ctx,
			`SELECT effective_mode FROM conversations WHERE id = ?`, conversationID,
		).Scan(&mode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		now := time.Now().UTC()
		next := mode
		if flipToLive && mode != domain.ModeLive {
			next = domain.ModeLive
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET effective_mode = ?, updated_at = ? WHERE id = ?`,
			next, toMillis(now), conversationID,
		); err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}

		stored := *msg
		stored.ConversationID = conversationID
		stored.CreatedAt = fromMillis(toMillis(now))
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO messages (conversation_id, sender, text, sources, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			conversationID, stored.Sender, stored.Text, sources, toMillis(now),
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
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, conversation_id, sender, text, sources, created_at
		FROM messages
		WHERE conversation_id = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?`,
		conversationID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var sources sql.NullString
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Text, &sources, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}
		m.CreatedAt = fromMillis(created)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
