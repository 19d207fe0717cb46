package conversation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
)

// Publisher carries envelopes to other server instances
type Publisher interface {
	Publish(ctx context.Context, env domain.Envelope) error
}

// Notifier delivers group events locally and, when a publisher is set,
// to every other instance. Envelopes that come back from the publisher
// with this instance's origin are ignored.
type Notifier struct {
	hub    *Hub
	pub    Publisher
	origin string
}

// NewNotifier creates a notifier over hub. pub may be nil on a single
// instance.
func NewNotifier(hub *Hub, pub Publisher) *Notifier {
	return &Notifier{hub: hub, pub: pub, origin: uuid.NewString()}
}

// Hub returns the local hub
func (n *Notifier) Hub() *Hub {
	return n.hub
}

// Origin identifies this instance on the bus
func (n *Notifier) Origin() string {
	return n.origin
}

// Notify sends ev to group
func (n *Notifier) Notify(ctx context.Context, group string, ev domain.Event) {
	n.hub.Broadcast(group, ev)
	if n.pub == nil {
		return
	}
	env := domain.Envelope{Origin: n.origin, Group: group, Event: ev}
	if err := n.pub.Publish(ctx, env); err != nil {
		log.Warn().Err(err).Str("group", group).Msg("failed to publish realtime event")
	}
}

// Deliver handles an envelope received from the bus
func (n *Notifier) Deliver(env domain.Envelope) {
	if env.Origin == n.origin || env.Group == "" {
		return
	}
	n.hub.Broadcast(env.Group, env.Event)
}
