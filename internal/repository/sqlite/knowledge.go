package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
)

// KnowledgeRepository handles knowledge sources and their indexed chunks
type KnowledgeRepository struct {
	db *DB
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

const sourceColumns = `id, bot_id, title, source_type, content, status, created_at, updated_at`

const chunkColumns = `id, source_id, bot_id, position, text, index_host, index_port, index_tls,
	collection_name, point_id, embedding_model, created_at`

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var created int64
	err := row.Scan(
		&c.ID,
		&c.SourceID,
		&c.BotID,
		&c.Position,
		&c.Text,
		&c.Index.Host,
		&c.Index.Port,
		&c.Index.UseTLS,
		&c.Collection,
		&c.PointID,
		&c.EmbeddingModel,
		&created,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// CreateSource stores a knowledge source
func (r *KnowledgeRepository) CreateSource(ctx context.Context, s *domain.KnowledgeSource) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO knowledge_sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.BotID, s.Title, s.Type, s.Content, s.Status, toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge source: %w", err)
	}
	return nil
}

// GetSource retrieves a knowledge source by ID
func (r *KnowledgeRepository) GetSource(ctx context.Context, id uuid.UUID) (*domain.KnowledgeSource, error) {
	var s domain.KnowledgeSource
	var created, updated int64
	err := r.db.conn.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM knowledge_sources WHERE id = ?`, id).Scan(
		&s.ID, &s.BotID, &s.Title, &s.Type, &s.Content, &s.Status, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get knowledge source: %w", err)
	}
	s.CreatedAt = fromMillis(created)
	s.UpdatedAt = fromMillis(updated)
	return &s, nil
}

// UpdateSource updates a knowledge source's content and status
func (r *KnowledgeRepository) UpdateSource(ctx context.Context, s *domain.KnowledgeSource) error {
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE knowledge_sources
		SET title = ?, source_type = ?, content = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		s.Title, s.Type, s.Content, s.Status, toMillis(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update knowledge source: %w", err)
	}
	return requireRow(res)
}

// DeleteSource removes a source and, by cascade, its chunks
func (r *KnowledgeRepository) DeleteSource(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM knowledge_sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete knowledge source: %w", err)
	}
	return nil
}

// ListChunksBySource lists a source's chunks in position order
func (r *KnowledgeRepository) ListChunksBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.Chunk, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM knowledge_chunks WHERE source_id = ? ORDER BY position`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// ReplaceChunks swaps a source's chunk rows for the given set
func (r *KnowledgeRepository) ReplaceChunks(ctx context.Context, sourceID uuid.UUID, chunks []domain.Chunk) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_chunks WHERE source_id = ?`, sourceID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO knowledge_chunks (`+chunkColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx,
				c.ID,
				sourceID,
				c.BotID,
				c.Position,
				c.Text,
				c.Index.Host,
				c.Index.Port,
				boolInt(c.Index.UseTLS),
				c.Collection,
				c.PointID,
				c.EmbeddingModel,
				toMillis(c.CreatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert chunk: %w", err)
			}
		}
		return nil
	})
}

// FirstChunkForBot returns the earliest chunk of a bot
func (r *KnowledgeRepository) FirstChunkForBot(ctx context.Context, botID uuid.UUID) (*domain.Chunk, error) {
	c, err := scanChunk(r.db.conn.QueryRowContext(ctx, `
		SELECT `+chunkColumns+`
		FROM knowledge_chunks
		WHERE bot_id = ?
		ORDER BY created_at, position
		LIMIT 1`,
		botID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return c, nil
}
