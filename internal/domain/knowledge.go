package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceType is the format of a knowledge source
type SourceType string

const (
	SourceText SourceType = "TEXT"
	SourceJSON SourceType = "JSON"
)

// Knowledge source indexing states
const (
	SourceStatusPending = "PENDING"
	SourceStatusIndexed = "INDEXED"
	SourceStatusFailed  = "FAILED"
)

// KnowledgeSource is raw content a bot answers from
type KnowledgeSource struct {
	ID        uuid.UUID  `json:"id"`
	BotID     uuid.UUID  `json:"bot_id"`
	Title     string     `json:"title"`
	Type      SourceType `json:"source_type"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// KnowledgeSourceCreate represents knowledge source creation data
type KnowledgeSourceCreate struct {
	BotID   uuid.UUID  `json:"bot_id" validate:"required"`
	Title   string     `json:"title" validate:"required,max=255"`
	Type    SourceType `json:"source_type" validate:"required,oneof=TEXT JSON"`
	Content string     `json:"content" validate:"required"`
}

// IndexLocation addresses a vector index server
type IndexLocation struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	UseTLS bool   `json:"use_tls"`
}

// Key identifies the location for client pooling
func (l IndexLocation) Key() string {
	return fmt.Sprintf("%s:%d/%t", l.Host, l.Port, l.UseTLS)
}

// Chunk is an indexed fragment of a knowledge source and its pointer
// into the external vector index.
type Chunk struct {
	ID             uuid.UUID     `json:"id"`
	SourceID       uuid.UUID     `json:"source_id"`
	BotID          uuid.UUID     `json:"bot_id"`
	Position       int           `json:"position"`
	Text           string        `json:"text"`
	Index          IndexLocation `json:"index"`
	Collection     string        `json:"collection_name"`
	PointID        uuid.UUID     `json:"point_id"`
	EmbeddingModel string        `json:"embedding_model"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CollectionForBot names the vector collection holding a bot's chunks
func CollectionForBot(botID uuid.UUID) string {
	return "bot-" + botID.String()
}
