package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
)

// Indexer writes a source's chunks into the vector index
type Indexer interface {
	IndexSource(ctx context.Context, source *domain.KnowledgeSource) error
	DeleteSource(ctx context.Context, sourceID uuid.UUID) error
}

// KnowledgeService manages the sources a bot answers from
type KnowledgeService struct {
	sources domain.KnowledgeRepository
	bots    domain.BotRepository
	indexer Indexer
}

// NewKnowledgeService creates a new knowledge service
func NewKnowledgeService(sources domain.KnowledgeRepository, bots domain.BotRepository, indexer Indexer) *KnowledgeService {
	return &KnowledgeService{sources: sources, bots: bots, indexer: indexer}
}

// Add stores a source and indexes it. The returned source carries the
// final status; an indexing failure is returned alongside it.
func (s *KnowledgeService) Add(ctx context.Context, input domain.KnowledgeSourceCreate) (*domain.KnowledgeSource, error) {
	bot, err := s.bots.GetByID(ctx, input.BotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	if bot == nil {
		return nil, domain.ErrNotFound
	}

	kind := domain.SourceType(strings.ToUpper(strings.TrimSpace(string(input.Type))))
	if kind == "" {
		kind = domain.SourceText
	}
	if kind != domain.SourceText && kind != domain.SourceJSON {
		return nil, fmt.Errorf("unsupported source type: %s", input.Type)
	}

	now := time.Now()
	source := &domain.KnowledgeSource{
		ID:        uuid.New(),
		BotID:     bot.ID,
		Title:     strings.TrimSpace(input.Title),
		Type:      kind,
		Content:   input.Content,
		Status:    domain.SourceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sources.CreateSource(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to create knowledge source: %w", err)
	}

	if err := s.indexer.IndexSource(ctx, source); err != nil {
		return source, err
	}
	return source, nil
}

// Reindex replaces a source's content and chunks
func (s *KnowledgeService) Reindex(ctx context.Context, id uuid.UUID, content string) (*domain.KnowledgeSource, error) {
	source, err := s.sources.GetSource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge source: %w", err)
	}
	if source == nil {
		return nil, domain.ErrNotFound
	}
	if content != "" {
		source.Content = content
	}
	if err := s.indexer.IndexSource(ctx, source); err != nil {
		return source, err
	}
	return source, nil
}

// Delete removes a source, its vector points and its chunks
func (s *KnowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	source, err := s.sources.GetSource(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get knowledge source: %w", err)
	}
	if source == nil {
		return domain.ErrNotFound
	}
	return s.indexer.DeleteSource(ctx, id)
}
