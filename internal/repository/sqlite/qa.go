package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
)

// QARepository handles Q&A tree nodes
type QARepository struct {
	db *DB
}

// NewQARepository creates a new Q&A repository
func NewQARepository(db *DB) *QARepository {
	return &QARepository{db: db}
}

const qaColumns = `id, bot_id, parent_id, question, answer, sort_order, created_at, updated_at`

func scanQANode(row rowScanner) (*domain.QANode, error) {
	var n domain.QANode
	var parent sql.NullString
	var created, updated int64
	if err := row.Scan(&n.ID, &n.BotID, &parent, &n.Question, &n.Answer, &n.Order, &created, &updated); err != nil {
		return nil, err
	}
	parentID, err := parseNullUUID(parent)
	if err != nil {
		return nil, fmt.Errorf("invalid parent id: %w", err)
	}
	n.ParentID = parentID
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	return &n, nil
}

// Create stores a Q&A node
func (r *QARepository) Create(ctx context.Context, n *domain.QANode) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO qa_nodes (`+qaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.BotID, nullUUID(n.ParentID), n.Question, n.Answer, n.Order,
		toMillis(n.CreatedAt), toMillis(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create qa node: %w", err)
	}
	return nil
}

// GetByID retrieves a Q&A node by ID
func (r *QARepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QANode, error) {
	n, err := scanQANode(r.db.conn.QueryRowContext(ctx, `SELECT `+qaColumns+` FROM qa_nodes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get qa node: %w", err)
	}
	return n, nil
}

// ListByBot lists all Q&A nodes of a bot
func (r *QARepository) ListByBot(ctx context.Context, botID uuid.UUID) ([]domain.QANode, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+qaColumns+` FROM qa_nodes WHERE bot_id = ? ORDER BY sort_order, created_at`,
		botID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.QANode
	for rows.Next() {
		n, err := scanQANode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan qa node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// Move places a node under parentID at the given order after checking
// the placement against the bot's nodes inside the same transaction
func (r *QARepository) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, order int) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var botID uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT bot_id FROM qa_nodes WHERE id = ?`, id).Scan(&botID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get qa node: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `SELECT `+qaColumns+` FROM qa_nodes WHERE bot_id = ?`, botID)
		if err != nil {
			return fmt.Errorf("failed to list qa nodes: %w", err)
		}
		var nodes []domain.QANode
		for rows.Next() {
			n, err := scanQANode(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan qa node: %w", err)
			}
			nodes = append(nodes, *n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to list qa nodes: %w", err)
		}

		if err := domain.CheckPlacement(nodes, id, parentID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE qa_nodes SET parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
			nullUUID(parentID), order, toMillis(time.Now()), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update qa node: %w", err)
		}
		return requireRow(res)
	})
}
