package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/Rrens/redbot/internal/domain"
)

// DefaultChunkWords is the chunk size used when none is configured
const DefaultChunkWords = 500

// Indexer turns knowledge sources into searchable chunks
type Indexer struct {
	repo       domain.KnowledgeRepository
	pool       *Pool
	embedder   Embedder
	location   domain.IndexLocation
	chunkWords int
	now        func() time.Time
}

// NewIndexer creates an indexer writing new chunks to location
func NewIndexer(repo domain.KnowledgeRepository, pool *Pool, embedder Embedder, location domain.IndexLocation, chunkWords int) *Indexer {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	return &Indexer{
		repo:       repo,
		pool:       pool,
		embedder:   embedder,
		location:   location,
		chunkWords: chunkWords,
		now:        time.Now,
	}
}

// SplitWords splits text into chunks of at most size words
func SplitWords(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkWords
	}

	chunks := make([]string, 0, len(words)/size+1)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// FlattenJSON renders a JSON document as "path: value" lines so scalar
// values keep their labels when chunked.
func FlattenJSON(raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("invalid JSON content")
	}

	var lines []string
	var walk func(prefix string, v gjson.Result)
	walk = func(prefix string, v gjson.Result) {
		if v.IsObject() || v.IsArray() {
			v.ForEach(func(k, child gjson.Result) bool {
				key := k.String()
				if prefix != "" {
					key = prefix + "." + key
				}
				walk(key, child)
				return true
			})
			return
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			if prefix == "" {
				lines = append(lines, s)
			} else {
				lines = append(lines, prefix+": "+s)
			}
		}
	}
	walk("", gjson.Parse(raw))
	return strings.Join(lines, "\n"), nil
}

func (ix *Indexer) sourceText(source *domain.KnowledgeSource) (string, error) {
	if source.Type == domain.SourceJSON {
		return FlattenJSON(source.Content)
	}
	return source.Content, nil
}

// IndexSource replaces the chunks and vectors of source with freshly
// embedded ones and records the outcome in its status.
func (ix *Indexer) IndexSource(ctx context.Context, source *domain.KnowledgeSource) error {
	err := ix.index(ctx, source)

	source.Status = domain.SourceStatusIndexed
	if err != nil {
		source.Status = domain.SourceStatusFailed
		log.Error().Err(err).Str("source_id", source.ID.String()).Msg("Knowledge indexing failed")
	}
	source.UpdatedAt = ix.now()
	if uerr := ix.repo.UpdateSource(ctx, source); uerr != nil {
		if err == nil {
			err = uerr
		}
	}
	return err
}

func (ix *Indexer) index(ctx context.Context, source *domain.KnowledgeSource) error {
	text, err := ix.sourceText(source)
	if err != nil {
		return err
	}

	if err := ix.removePoints(ctx, source.ID); err != nil {
		return err
	}

	pieces := SplitWords(text, ix.chunkWords)
	if len(pieces) == 0 {
		return ix.repo.ReplaceChunks(ctx, source.ID, nil)
	}

	collection := domain.CollectionForBot(source.BotID)
	now := ix.now()
	chunks := make([]domain.Chunk, 0, len(pieces))
	points := make([]Point, 0, len(pieces))
	for i, piece := range pieces {
		vector, err := ix.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		c := domain.Chunk{
			ID:             uuid.New(),
			SourceID:       source.ID,
			BotID:          source.BotID,
			Position:       i,
			Text:           piece,
			Index:          ix.location,
			Collection:     collection,
			PointID:        uuid.New(),
			EmbeddingModel: ix.embedder.Model(),
			CreatedAt:      now,
		}
		chunks = append(chunks, c)
		points = append(points, Point{
			ID:       c.PointID,
			Vector:   vector,
			Text:     piece,
			SourceID: source.ID,
			ChunkID:  c.ID,
			BotID:    source.BotID,
		})
	}

	idx, err := ix.pool.Get(ctx, ix.location)
	if err != nil {
		return err
	}
	if err := idx.EnsureCollection(ctx, collection, uint64(len(points[0].Vector))); err != nil {
		return err
	}
	if err := idx.Upsert(ctx, collection, points); err != nil {
		return err
	}

	if err := ix.repo.ReplaceChunks(ctx, source.ID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	log.Info().
		Str("source_id", source.ID.String()).
		Str("collection", collection).
		Int("chunks", len(chunks)).
		Msg("Knowledge source indexed")
	return nil
}

// DeleteSource removes a source's vectors, then the source and its chunks
func (ix *Indexer) DeleteSource(ctx context.Context, sourceID uuid.UUID) error {
	if err := ix.removePoints(ctx, sourceID); err != nil {
		return err
	}
	if err := ix.repo.DeleteSource(ctx, sourceID); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// removePoints deletes the vectors of a source's current chunks, grouped
// by the index and collection each chunk lives in.
func (ix *Indexer) removePoints(ctx context.Context, sourceID uuid.UUID) error {
	chunks, err := ix.repo.ListChunksBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	type target struct {
		loc        domain.IndexLocation
		collection string
	}
	groups := make(map[target][]uuid.UUID)
	for _, c := range chunks {
		t := target{loc: c.Index, collection: c.Collection}
		groups[t] = append(groups[t], c.PointID)
	}

	targets := make([]target, 0, len(groups))
	for t := range groups {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].loc.Key()+targets[i].collection < targets[j].loc.Key()+targets[j].collection
	})

	for _, t := range targets {
		idx, err := ix.pool.Get(ctx, t.loc)
		if err != nil {
			return err
		}
		if err := idx.Delete(ctx, t.collection, groups[t]); err != nil {
			return err
		}
	}
	return nil
}
