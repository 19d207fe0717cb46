package conversation

import (
	"sync"

	"github.com/google/uuid"
)

// Presence counts the agent connections open for each bot on this process
type Presence struct {
	mu     sync.Mutex
	agents map[string]map[uuid.UUID]struct{}
}

// NewPresence creates an empty tracker
func NewPresence() *Presence {
	return &Presence{agents: make(map[string]map[uuid.UUID]struct{})}
}

// Add registers an agent connection and returns the new count
func (p *Presence) Add(publicKey string, conn uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.agents[publicKey]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		p.agents[publicKey] = set
	}
	set[conn] = struct{}{}
	return len(set)
}

// Remove drops an agent connection and returns the remaining count
func (p *Presence) Remove(publicKey string, conn uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.agents[publicKey]
	if !ok {
		return 0
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(p.agents, publicKey)
		return 0
	}
	return len(set)
}

// Count returns the open agent connections for a bot
func (p *Presence) Count(publicKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.agents[publicKey])
}

// Online reports whether any agent is connected for a bot
func (p *Presence) Online(publicKey string) bool {
	return p.Count(publicKey) > 0
}
