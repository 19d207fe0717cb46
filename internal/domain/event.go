package domain

import "time"

// EventType is the type tag of a real-time event
type EventType string

const (
	EventChatMessage EventType = "chat_message"
	EventTyping      EventType = "typing"
	EventAgentStatus EventType = "agent_status"
	EventError       EventType = "error"
)

// Event is a frame pushed to real-time subscribers
type Event struct {
	Type      EventType  `json:"type"`
	ID        int64      `json:"id,omitempty"`
	Text      string     `json:"text,omitempty"`
	Sender    Sender     `json:"sender,omitempty"`
	AgentName string     `json:"agent_name,omitempty"`
	Online    *bool      `json:"online,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// MessageEvent builds the chat_message frame for a stored message
func MessageEvent(m *Message) Event {
	ts := m.CreatedAt
	return Event{Type: EventChatMessage, ID: m.ID, Text: m.Text, Sender: m.Sender, Timestamp: &ts}
}

// StatusEvent builds an agent_status frame
func StatusEvent(online bool) Event {
	return Event{Type: EventAgentStatus, Online: &online}
}

// Envelope carries an event to a push group, across server instances
type Envelope struct {
	Origin string `json:"origin"`
	Group  string `json:"group"`
	Event  Event  `json:"event"`
}

// ChatGroup names the push group of one conversation
func ChatGroup(publicKey, sessionID string) string {
	return "chat_" + publicKey + "_" + sessionID
}

// StatusGroup names the push group carrying a bot's agent presence
func StatusGroup(publicKey string) string {
	return "bot_status_" + publicKey
}
