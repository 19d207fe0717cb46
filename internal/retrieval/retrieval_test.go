package retrieval_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/repository"
	"github.com/Rrens/redbot/internal/repository/sqlite"
	"github.com/Rrens/redbot/internal/retrieval"
)

type fakeEmbedder struct {
	model string
	err   error
}

func (f *fakeEmbedder) Model() string { return f.model }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// memIndex keeps points in insertion order and returns them as hits
type memIndex struct {
	mu          sync.Mutex
	collections map[string]uint64
	points      map[string][]retrieval.Point
	healthy     bool
	closed      bool
	searchErr   error
}

func newMemIndex() *memIndex {
	return &memIndex{
		collections: make(map[string]uint64),
		points:      make(map[string][]retrieval.Point),
		healthy:     true,
	}
}

func (m *memIndex) EnsureCollection(_ context.Context, collection string, dimension uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = dimension
	}
	return nil
}

func (m *memIndex) Search(_ context.Context, collection string, _ []float32, limit uint64) ([]retrieval.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var hits []retrieval.Hit
	for _, p := range m.points[collection] {
		if uint64(len(hits)) == limit {
			break
		}
		hits = append(hits, retrieval.Hit{ID: p.ID.String(), Score: 1, Text: p.Text, SourceID: p.SourceID.String()})
	}
	return hits, nil
}

func (m *memIndex) Upsert(_ context.Context, collection string, points []retrieval.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[collection] = append(m.points[collection], points...)
	return nil
}

func (m *memIndex) Delete(_ context.Context, collection string, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.points[collection][:0]
	for _, p := range m.points[collection] {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	m.points[collection] = kept
	return nil
}

func (m *memIndex) HealthCheck(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.healthy {
		return errors.New("down")
	}
	return nil
}

func (m *memIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memIndex) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points[collection])
}

type fixture struct {
	store    *repository.Store
	index    *memIndex
	pool     *retrieval.Pool
	embedder *fakeEmbedder
	indexer  *retrieval.Indexer
	engine   *retrieval.Engine
	bot      *domain.Bot
	loc      domain.IndexLocation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "redbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewSQLiteStore(db)

	now := time.Now().UTC()
	ws := &domain.Workspace{ID: uuid.New(), Name: "Acme", Approved: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Workspaces.Create(ctx, ws))
	bot := &domain.Bot{
		ID:            uuid.New(),
		WorkspaceID:   ws.ID,
		Name:          domain.DefaultBotName,
		PublicKey:     domain.NewPublicKey(),
		PreferredMode: domain.ModeAI,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.Bots.Create(ctx, bot))

	index := newMemIndex()
	pool := retrieval.NewPool(func(context.Context, domain.IndexLocation) (retrieval.Index, error) {
		return index, nil
	})
	embedder := &fakeEmbedder{model: "test/embed-v1"}
	loc := domain.IndexLocation{Host: "qdrant", Port: 6334}

	return &fixture{
		store:    store,
		index:    index,
		pool:     pool,
		embedder: embedder,
		indexer:  retrieval.NewIndexer(store.Knowledge, pool, embedder, loc, 3),
		engine:   retrieval.NewEngine(store.Knowledge, pool, embedder, 2, time.Second),
		bot:      bot,
		loc:      loc,
	}
}

func (f *fixture) addSource(t *testing.T, typ domain.SourceType, content string) *domain.KnowledgeSource {
	t.Helper()
	now := time.Now().UTC()
	src := &domain.KnowledgeSource{
		ID:        uuid.New(),
		BotID:     f.bot.ID,
		Title:     "FAQ",
		Type:      typ,
		Content:   content,
		Status:    domain.SourceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.Knowledge.CreateSource(context.Background(), src))
	return src
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a b", "c d", "e"}, retrieval.SplitWords("a  b\nc\td e", 2))
	assert.Nil(t, retrieval.SplitWords("   ", 2))
	assert.Len(t, retrieval.SplitWords(strings.Repeat("w ", 1001), 0), 3)
}

func TestFlattenJSON(t *testing.T) {
	out, err := retrieval.FlattenJSON(`{"contact":{"email":"hi@acme.test","phones":["123","456"]},"name":"Acme"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "contact.email: hi@acme.test")
	assert.Contains(t, out, "contact.phones.1: 456")
	assert.Contains(t, out, "name: Acme")

	_, err = retrieval.FlattenJSON(`{"broken":`)
	assert.Error(t, err)
}

func TestIndexSource_ThenRetrieve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.addSource(t, domain.SourceText, "refunds are accepted within thirty days")

	require.NoError(t, f.indexer.IndexSource(ctx, src))

	stored, err := f.store.Knowledge.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusIndexed, stored.Status)

	chunks, err := f.store.Knowledge.ListChunksBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "test/embed-v1", chunks[0].EmbeddingModel)
	assert.Equal(t, f.loc, chunks[0].Index)
	assert.Equal(t, domain.CollectionForBot(f.bot.ID), chunks[0].Collection)

	res := f.engine.Retrieve(ctx, f.bot.ID, "refund policy")
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, "refunds are accepted", res.Fragments[0].Text)
	assert.Equal(t, []string{src.ID.String()}, res.Sources())
	assert.False(t, res.Empty())
}

func TestIndexSource_ReplacesPreviousPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.addSource(t, domain.SourceText, "one two three four five six")
	collection := domain.CollectionForBot(f.bot.ID)

	require.NoError(t, f.indexer.IndexSource(ctx, src))
	assert.Equal(t, 2, f.index.count(collection))

	src.Content = "seven"
	require.NoError(t, f.indexer.IndexSource(ctx, src))
	assert.Equal(t, 1, f.index.count(collection))

	require.NoError(t, f.indexer.DeleteSource(ctx, src.ID))
	assert.Equal(t, 0, f.index.count(collection))
	gone, err := f.store.Knowledge.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestIndexSource_EmbeddingFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.addSource(t, domain.SourceText, "hello world")
	f.embedder.err = errors.New("quota")

	assert.Error(t, f.indexer.IndexSource(ctx, src))
	stored, err := f.store.Knowledge.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusFailed, stored.Status)
}

func TestRetrieve_DegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("no chunks", func(t *testing.T) {
		f := newFixture(t)
		assert.True(t, f.engine.Retrieve(ctx, f.bot.ID, "anything").Empty())
	})

	t.Run("embedding model mismatch", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.indexer.IndexSource(ctx, f.addSource(t, domain.SourceText, "some text")))
		other := retrieval.NewEngine(f.store.Knowledge, f.pool, &fakeEmbedder{model: "test/embed-v2"}, 1, time.Second)
		assert.True(t, other.Retrieve(ctx, f.bot.ID, "some").Empty())
	})

	t.Run("index unreachable", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.indexer.IndexSource(ctx, f.addSource(t, domain.SourceText, "some text")))
		broken := retrieval.NewPool(func(context.Context, domain.IndexLocation) (retrieval.Index, error) {
			return nil, errors.New("connection refused")
		})
		engine := retrieval.NewEngine(f.store.Knowledge, broken, f.embedder, 1, time.Second)
		assert.True(t, engine.Retrieve(ctx, f.bot.ID, "some").Empty())
	})

	t.Run("search error", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.indexer.IndexSource(ctx, f.addSource(t, domain.SourceText, "some text")))
		f.index.searchErr = errors.New("timeout")
		assert.True(t, f.engine.Retrieve(ctx, f.bot.ID, "some").Empty())
	})
}

func TestPool_ReconnectsUnhealthyIndex(t *testing.T) {
	ctx := context.Background()
	var created []*memIndex
	pool := retrieval.NewPool(func(context.Context, domain.IndexLocation) (retrieval.Index, error) {
		idx := newMemIndex()
		created = append(created, idx)
		return idx, nil
	})
	loc := domain.IndexLocation{Host: "a", Port: 1}

	first, err := pool.Get(ctx, loc)
	require.NoError(t, err)
	again, err := pool.Get(ctx, loc)
	require.NoError(t, err)
	assert.Same(t, first, again)

	created[0].healthy = false
	fresh, err := pool.Get(ctx, loc)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.True(t, created[0].closed)
	assert.Equal(t, 1, pool.Size())

	_, err = pool.Get(ctx, domain.IndexLocation{Host: "b", Port: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Size())

	pool.CloseAll()
	assert.Equal(t, 0, pool.Size())
}
