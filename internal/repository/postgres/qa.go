package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func scanQANode(row pgx.Row) (*domain.QANode, error) {
	var n domain.QANode
	err := row.Scan(&n.ID, &n.BotID, &n.ParentID, &n.Question, &n.Answer, &n.Order, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create stores a Q&A node
func (r *QARepository) Create(ctx context.Context, node *domain.QANode) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO qa_nodes (`+qaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		node.ID,
		node.BotID,
		node.ParentID,
		node.Question,
		node.Answer,
		node.Order,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create qa node: %w", err)
	}
	return nil
}

// GetByID retrieves a Q&A node by ID
func (r *QARepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QANode, error) {
	n, err := scanQANode(r.db.Pool.QueryRow(ctx, `SELECT `+qaColumns+` FROM qa_nodes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get qa node: %w", err)
	}
	return n, nil
}

// ListByBot lists all Q&A nodes of a bot
func (r *QARepository) ListByBot(ctx context.Context, botID uuid.UUID) ([]domain.QANode, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+qaColumns+`
		FROM qa_nodes
		WHERE bot_id = $1
		ORDER BY sort_order, created_at`,
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

// Move places a node under parentID at the given order. The bot's nodes
// are locked while the placement is checked and written.
func (r *QARepository) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, order int) error {
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		var botID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT bot_id FROM qa_nodes WHERE id = $1`, id).Scan(&botID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get qa node: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT `+qaColumns+`
			FROM qa_nodes
			WHERE bot_id = $1
			ORDER BY id
			FOR UPDATE`,
			botID,
		)
		if err != nil {
			return fmt.Errorf("failed to lock qa nodes: %w", err)
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
			return fmt.Errorf("failed to lock qa nodes: %w", err)
		}

		if err := domain.CheckPlacement(nodes, id, parentID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE qa_nodes SET parent_id = $2, sort_order = $3, updated_at = $4 WHERE id = $1`,
			id, parentID, order, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to update qa node: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
