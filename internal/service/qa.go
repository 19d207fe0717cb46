package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
)

// QAService manages a bot's Q&A tree
type QAService struct {
	nodes domain.QARepository
}

// NewQAService creates a new Q&A service
func NewQAService(nodes domain.QARepository) *QAService {
	return &QAService{nodes: nodes}
}

// Add creates a node. The parent, when set, must belong to the same bot.
func (s *QAService) Add(ctx context.Context, input domain.QANodeCreate) (*domain.QANode, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if input.ParentID != nil {
		if err := s.checkParent(ctx, input.BotID, *input.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	node := &domain.QANode{
		ID:        uuid.New(),
		BotID:     input.BotID,
		ParentID:  input.ParentID,
		Question:  question,
		Answer:    strings.TrimSpace(input.Answer),
		Order:     input.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.nodes.Create(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to create q&a node: %w", err)
	}
	return node, nil
}

// Move re-parents and re-orders a node. A parent that is the node itself
// or one of its descendants is rejected with domain.ErrQACycle; a parent
// from another bot with domain.ErrNotFound.
func (s *QAService) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, order int) error {
	if err := s.nodes.Move(ctx, id, parentID, order); err != nil {
		return fmt.Errorf("failed to move q&a node: %w", err)
	}
	return nil
}

// Tree returns the bot's nodes nested by parent
func (s *QAService) Tree(ctx context.Context, botID uuid.UUID) ([]*domain.QATreeNode, error) {
	nodes, err := s.nodes.ListByBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list q&a nodes: %w", err)
	}
	return domain.BuildQATree(nodes), nil
}

func (s *QAService) checkParent(ctx context.Context, botID, parentID uuid.UUID) error {
	parent, err := s.nodes.GetByID(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to get parent node: %w", err)
	}
	if parent == nil || parent.BotID != botID {
		return fmt.Errorf("parent node: %w", domain.ErrNotFound)
	}
	return nil
}
