package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repositories return (nil, nil) when a single record is not found.

// WorkspaceRepository defines workspace storage
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	Update(ctx context.Context, workspace *Workspace) error
}

// PlanRepository defines plan storage. Activation must be atomic with
// deactivating any other active plan of the workspace, and a concurrent
// activation that loses the race fails with ErrActivePlanConflict.
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]Plan, error)
	// Activate makes the plan the workspace's only active plan and clears
	// bot AI fields when its bundle excludes AI.
	Activate(ctx context.Context, id uuid.UUID) (*Plan, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// BotRepository defines bot storage
type BotRepository interface {
	Create(ctx context.Context, bot *Bot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bot, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*Bot, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]Bot, error)
	Update(ctx context.Context, bot *Bot) error
}

// ConversationRepository defines conversation and message storage
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, botID uuid.UUID, sessionID string, mode Mode) (*Conversation, error)
	Get(ctx context.Context, botID uuid.UUID, sessionID string) (*Conversation, error)
	// Append stores msg and, when flipToLive is set, moves the conversation
	// to LIVE in the same transaction.
	Append(ctx context.Context, conversationID uuid.UUID, msg *Message, flipToLive bool) (*AppendResult, error)
	ListAfter(ctx context.Context, conversationID uuid.UUID, afterID int64, limit int) ([]Message, error)
}

// KnowledgeRepository defines knowledge source and chunk storage
type KnowledgeRepository interface {
	CreateSource(ctx context.Context, source *KnowledgeSource) error
	GetSource(ctx context.Context, id uuid.UUID) (*KnowledgeSource, error)
	UpdateSource(ctx context.Context, source *KnowledgeSource) error
	DeleteSource(ctx context.Context, id uuid.UUID) error
	ListChunksBySource(ctx context.Context, sourceID uuid.UUID) ([]Chunk, error)
	ReplaceChunks(ctx context.Context, sourceID uuid.UUID, chunks []Chunk) error
	FirstChunkForBot(ctx context.Context, botID uuid.UUID) (*Chunk, error)
}

// QARepository defines Q&A node storage
type QARepository interface {
	Create(ctx context.Context, node *QANode) error
	GetByID(ctx context.Context, id uuid.UUID) (*QANode, error)
	ListByBot(ctx context.Context, botID uuid.UUID) ([]QANode, error)
	// Move re-parents and re-orders a node. The placement check and the
	// write are one transaction, so concurrent moves cannot form a cycle.
	Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, order int) error
}

// EnquiryRepository defines enquiry storage
type EnquiryRepository interface {
	Create(ctx context.Context, enquiry *Enquiry) error
}
