package conversation

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
)

const clientBuffer = 32

// Client is one connected real-time subscriber
type Client struct {
	ID       uuid.UUID
	Outbound chan domain.Event

	groups map[string]bool
	done   chan struct{}
	once   sync.Once
}

// Done is closed when the hub drops the client
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub delivers events to the clients joined to a group on this process
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*Client]bool)}
}

// NewClient allocates a client that has not joined any group
func (h *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Outbound: make(chan domain.Event, clientBuffer),
		groups:   make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Join subscribes the client to group
func (h *Hub) Join(c *Client, group string) {
	group = strings.TrimSpace(group)
	if group == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c.groups[group] = true
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]bool)
		h.groups[group] = members
	}
	members[c] = true
}

// Leave unsubscribes the client from group
func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
}

func (h *Hub) leaveLocked(c *Client, group string) {
	delete(c.groups, group)
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Close removes the client from every group and signals Done
func (h *Hub) Close(c *Client) {
	h.mu.Lock()
	for g := range c.groups {
		h.leaveLocked(c, g)
	}
	h.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Broadcast delivers ev to every member of group. A client whose buffer
// is full misses the event.
func (h *Hub) Broadcast(group string, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[group] {
		select {
		case c.Outbound <- ev:
		default:
			log.Warn().Str("client_id", c.ID.String()).Str("group", group).Msg("dropping event, client buffer full")
		}
	}
}

// Members returns the number of clients joined to group
func (h *Hub) Members(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
