// Package conversation keeps the per-session message log of each bot and
// pushes new messages to real-time subscribers.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/metrics"
)

const (
	DefaultPollLimit = 100
	MaxPollLimit     = 500
)

// Thread is a conversation addressed by the bot's public key
type Thread struct {
	PublicKey    string
	Conversation *domain.Conversation
}

// Group returns the push group of the thread
func (t *Thread) Group() string {
	return domain.ChatGroup(t.PublicKey, t.Conversation.SessionID)
}

// Service persists conversations and notifies subscribers of appends.
// Appends to one conversation are serialized so subscribers see
// messages in id order.
type Service struct {
	repo     domain.ConversationRepository
	notifier *Notifier
	presence *Presence
	locks    *keyedMutex
	now      func() time.Time
}

// NewService creates a conversation service. notifier may be nil.
func NewService(repo domain.ConversationRepository, notifier *Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		presence: NewPresence(),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Open returns the bot's conversation for sessionID, creating it in
// defaultMode when it does not exist yet.
func (s *Service) Open(ctx context.Context, bot *domain.Bot, sessionID string, defaultMode domain.Mode) (*Thread, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if !defaultMode.Valid() {
		defaultMode = domain.ModeAI
	}

	conv, err := s.repo.GetOrCreate(ctx, bot.ID, sessionID, defaultMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}
	return &Thread{PublicKey: bot.PublicKey, Conversation: conv}, nil
}

// Find returns an existing conversation without creating one
func (s *Service) Find(ctx context.Context, bot *domain.Bot, sessionID string) (*Thread, error) {
	conv, err := s.repo.Get(ctx, bot.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, nil
	}
	return &Thread{PublicKey: bot.PublicKey, Conversation: conv}, nil
}

// Append stores a message. With flip set, a message moves a conversation
// that is not yet LIVE to LIVE in the same write; the move is never
// undone. The stored message is pushed to the thread's group.
func (s *Service) Append(ctx context.Context, t *Thread, sender domain.Sender, text string, sources []string, flip bool) (*domain.AppendResult, error) {
	if !sender.Valid() {
		return nil, fmt.Errorf("invalid sender: %s", sender)
	}

	unlock := s.locks.Lock(t.Conversation.ID)
	defer unlock()

	msg := &domain.Message{
		ConversationID: t.Conversation.ID,
		Sender:         sender,
		Text:           text,
		Sources:        sources,
		CreatedAt:      s.now().UTC(),
	}
	res, err := s.repo.Append(ctx, t.Conversation.ID, msg, flip)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	t.Conversation.EffectiveMode = res.Mode

	if s.notifier != nil {
		s.notifier.Notify(ctx, t.Group(), domain.MessageEvent(res.Message))
	}
	return res, nil
}

// Poll returns up to limit messages newer than afterID in id order.
// hasMore reports that further messages follow the last one returned;
// clients poll again with that message's id as the cursor.
func (s *Service) Poll(ctx context.Context, t *Thread, afterID int64, limit int) (msgs []domain.Message, hasMore bool, err error) {
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	if limit > MaxPollLimit {
		limit = MaxPollLimit
	}
	if afterID < 0 {
		afterID = 0
	}

	msgs, err = s.repo.ListAfter(ctx, t.Conversation.ID, afterID, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(msgs) > limit {
		msgs, hasMore = msgs[:limit], true
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, hasMore, nil
}

// Typing pushes a typing indicator to the thread's group
func (s *Service) Typing(ctx context.Context, t *Thread, sender domain.Sender, agentName string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, t.Group(), domain.Event{Type: domain.EventTyping, Sender: sender, AgentName: agentName})
}

// Presence returns the agent presence tracker
func (s *Service) Presence() *Presence {
	return s.presence
}

// AgentJoined records an agent connection. The first agent of a bot
// announces it online.
func (s *Service) AgentJoined(ctx context.Context, publicKey string, conn uuid.UUID) {
	metrics.ConnectedAgents.Inc()
	if s.presence.Add(publicKey, conn) == 1 {
		s.announce(ctx, publicKey, true)
	}
}

// AgentLeft drops an agent connection. The last agent of a bot leaving
// announces it offline.
func (s *Service) AgentLeft(ctx context.Context, publicKey string, conn uuid.UUID) {
	metrics.ConnectedAgents.Dec()
	if s.presence.Remove(publicKey, conn) == 0 {
		s.announce(ctx, publicKey, false)
	}
}

func (s *Service) announce(ctx context.Context, publicKey string, online bool) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, domain.StatusGroup(publicKey), domain.StatusEvent(online))
	}
}

// keyedMutex hands out one mutex per key and forgets it when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refMutex)}
}

func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
