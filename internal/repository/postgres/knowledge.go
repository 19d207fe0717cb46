package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var c domain.Chunk
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
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateSource stores a knowledge source
func (r *KnowledgeRepository) CreateSource(ctx context.Context, source *domain.KnowledgeSource) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO knowledge_sources (`+sourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		source.ID,
		source.BotID,
		source.Title,
		source.Type,
		source.Content,
		source.Status,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge source: %w", err)
	}
	return nil
}

// GetSource retrieves a knowledge source by ID
func (r *KnowledgeRepository) GetSource(ctx context.Context, id uuid.UUID) (*domain.KnowledgeSource, error) {
	var s domain.KnowledgeSource
	err := r.db.Pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM knowledge_sources WHERE id = $1`, id).Scan(
		&s.ID,
		&s.BotID,
		&s.Title,
		&s.Type,
		&s.Content,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get knowledge source: %w", err)
	}
	return &s, nil
}

// UpdateSource updates a knowledge source's content and status
func (r *KnowledgeRepository) UpdateSource(ctx context.Context, source *domain.KnowledgeSource) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE knowledge_sources
		SET title = $2, source_type = $3, content = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		source.ID,
		source.Title,
		source.Type,
		source.Content,
		source.Status,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update knowledge source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteSource removes a source and, by cascade, its chunks
func (r *KnowledgeRepository) DeleteSource(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM knowledge_sources WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete knowledge source: %w", err)
	}
	return nil
}

// ListChunksBySource lists a source's chunks in position order
func (r *KnowledgeRepository) ListChunksBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM knowledge_chunks
		WHERE source_id = $1
		ORDER BY position`,
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
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks WHERE source_id = $1`, sourceID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(`
				INSERT INTO knowledge_chunks (`+chunkColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				c.ID,
				sourceID,
				c.BotID,
				c.Position,
				c.Text,
				c.Index.Host,
				c.Index.Port,
				c.Index.UseTLS,
				c.Collection,
				c.PointID,
				c.EmbeddingModel,
				c.CreatedAt,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

// FirstChunkForBot returns the earliest chunk of a bot. Its index pointer
// tells retrieval where the bot's vectors live.
func (r *KnowledgeRepository) FirstChunkForBot(ctx context.Context, botID uuid.UUID) (*domain.Chunk, error) {
	c, err := scanChunk(r.db.Pool.QueryRow(ctx, `
		SELECT `+chunkColumns+`
		FROM knowledge_chunks
		WHERE bot_id = $1
		ORDER BY created_at, position
		LIMIT 1`,
		botID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return c, nil
}
