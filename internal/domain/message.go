package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Conversation is the message log of one (bot, session) pair
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	BotID         uuid.UUID `json:"bot_id"`
	SessionID     string    `json:"session_id"`
	EffectiveMode Mode      `json:"effective_mode"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is an immutable entry in a conversation. IDs are assigned by
// the store and increase monotonically in append order.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	Sources        []string  `json:"sources,omitempty"`
	CreatedAt      time.Time `json:"timestamp"`
}

// AppendResult describes the outcome of appending a message
type AppendResult struct {
	Message      *Message
	PreviousMode Mode
	Mode         Mode
}

// Flipped reports whether this append moved the conversation to LIVE
func (r *AppendResult) Flipped() bool {
	return r.PreviousMode != ModeLive && r.Mode == ModeLive
}
