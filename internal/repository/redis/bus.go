package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/rs/zerolog/log"
)

// Bus fans real-time envelopes out to every server instance over a
// Redis pub/sub channel.
type Bus struct {
	client  *Client
	channel string
}

// NewBus creates a bus on the given channel
func NewBus(client *Client, channel string) *Bus {
	if channel == "" {
		channel = "redbot:realtime"
	}
	return &Bus{client: client, channel: channel}
}

// Publish sends an envelope to all subscribers
func (b *Bus) Publish(ctx context.Context, env domain.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return b.client.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and calls onMsg for each envelope until ctx
// is done. It returns once the subscription is confirmed.
func (b *Bus) StartForwarder(ctx context.Context, onMsg func(env domain.Envelope)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.client.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env domain.Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					log.Warn().Err(err).Msg("bad realtime payload")
					continue
				}
				onMsg(env)
			}
		}
	}()

	return nil
}
