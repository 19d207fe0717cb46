package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	redisrepo "github.com/Rrens/redbot/internal/repository/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) Create(ctx context.Context, bot *domain.Bot) error {
	return m.Called(ctx, bot).Error(0)
}

func (m *MockBotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *MockBotRepository) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Bot, error) {
	args := m.Called(ctx, publicKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *MockBotRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Bot, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *MockBotRepository) Update(ctx context.Context, bot *domain.Bot) error {
	return m.Called(ctx, bot).Error(0)
}

func newTestClient(t *testing.T) (*redisrepo.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return redisrepo.NewClientFrom(rdb), mr
}

func TestBotCache_ReadThrough(t *testing.T) {
	client, _ := newTestClient(t)
	repo := new(MockBotRepository)
	cache := redisrepo.NewBotCache(client, repo, time.Minute)
	ctx := context.Background()

	bot := &domain.Bot{
		ID:             uuid.New(),
		PublicKey:      "pk-1",
		EncryptedAIKey: []byte{9, 8, 7},
		AllowedDomains: []string{"example.com"},
		Enabled:        true,
	}
	repo.On("GetByPublicKey", mock.Anything, "pk-1").Return(bot, nil).Once()

	first, err := cache.GetByPublicKey(ctx, "pk-1")
	require.NoError(t, err)
	assert.Equal(t, bot.ID, first.ID)

	second, err := cache.GetByPublicKey(ctx, "pk-1")
	require.NoError(t, err)
	assert.Equal(t, bot.ID, second.ID)
	assert.Equal(t, []byte{9, 8, 7}, second.EncryptedAIKey)
	assert.Equal(t, []string{"example.com"}, second.AllowedDomains)

	repo.AssertNumberOfCalls(t, "GetByPublicKey", 1)
}

func TestBotCache_MissIsNotCached(t *testing.T) {
	client, _ := newTestClient(t)
	repo := new(MockBotRepository)
	cache := redisrepo.NewBotCache(client, repo, time.Minute)

	repo.On("GetByPublicKey", mock.Anything, "missing").Return(nil, nil)

	for i := 0; i < 2; i++ {
		got, err := cache.GetByPublicKey(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	repo.AssertNumberOfCalls(t, "GetByPublicKey", 2)
}

func TestBotCache_UpdateInvalidates(t *testing.T) {
	client, mr := newTestClient(t)
	repo := new(MockBotRepository)
	cache := redisrepo.NewBotCache(client, repo, time.Minute)
	ctx := context.Background()

	bot := &domain.Bot{ID: uuid.New(), WorkspaceID: uuid.New(), PublicKey: "pk-2"}
	repo.On("GetByPublicKey", mock.Anything, "pk-2").Return(bot, nil)
	repo.On("Update", mock.Anything, bot).Return(nil)
	repo.On("ListByWorkspace", mock.Anything, bot.WorkspaceID).Return([]domain.Bot{*bot}, nil)

	_, err := cache.GetByPublicKey(ctx, "pk-2")
	require.NoError(t, err)
	assert.True(t, mr.Exists("bot:pk:pk-2"))

	require.NoError(t, cache.Update(ctx, bot))
	assert.False(t, mr.Exists("bot:pk:pk-2"))

	_, err = cache.GetByPublicKey(ctx, "pk-2")
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateWorkspace(ctx, bot.WorkspaceID))
	assert.False(t, mr.Exists("bot:pk:pk-2"))
}

func TestBotCache_FlushAll(t *testing.T) {
	client, mr := newTestClient(t)
	repo := new(MockBotRepository)
	cache := redisrepo.NewBotCache(client, repo, time.Minute)
	ctx := context.Background()

	for _, pk := range []string{"pk-a", "pk-b", "pk-c"} {
		repo.On("GetByPublicKey", mock.Anything, pk).Return(&domain.Bot{ID: uuid.New(), PublicKey: pk}, nil)
		_, err := cache.GetByPublicKey(ctx, pk)
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	n, err := cache.FlushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.False(t, mr.Exists("bot:pk:pk-a"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestBus_PublishForward(t *testing.T) {
	client, _ := newTestClient(t)
	bus := redisrepo.NewBus(client, "test:realtime")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Envelope, 1)
	require.NoError(t, bus.StartForwarder(ctx, func(env domain.Envelope) {
		received <- env
	}))

	sent := domain.Envelope{
		Origin: "instance-a",
		Group:  domain.ChatGroup("pk", "sess"),
		Event:  domain.Event{Type: domain.EventChatMessage, ID: 7, Text: "hello", Sender: domain.SenderBot},
	}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.Group, got.Group)
		assert.Equal(t, "hello", got.Event.Text)
		assert.Equal(t, int64(7), got.Event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("envelope not forwarded")
	}
}

func TestRateLimiter_Window(t *testing.T) {
	client, _ := newTestClient(t)
	now := time.Date(2026, 3, 1, 10, 0, 30, 0, time.UTC)
	limiter := redisrepo.NewRateLimiter(client, 2, 1).WithClock(func() time.Time { return now })
	ctx := context.Background()
	key := redisrepo.Key("pk-1", "10.0.0.1")

	for i := 2; i >= 0; i-- {
		allowed, remaining, reset, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, remaining)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC), reset)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// Other clients keep their own budget
	allowed, _, _, err = limiter.Allow(ctx, redisrepo.Key("pk-1", "10.0.0.2"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// A new minute starts a new window
	now = now.Add(time.Minute)
	allowed, remaining, _, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
}
