package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/metrics"
)

const (
	DefaultTopK          = 1
	DefaultSearchTimeout = 15 * time.Second
)

// Fragment is a piece of knowledge returned for a query
type Fragment struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
}

// Result is the context gathered for one question
type Result struct {
	Fragments []Fragment
}

// Context joins the fragment texts for prompting
func (r Result) Context() string {
	parts := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Sources lists distinct source ids in rank order
func (r Result) Sources() []string {
	seen := make(map[string]bool, len(r.Fragments))
	out := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		if f.SourceID == "" || seen[f.SourceID] {
			continue
		}
		seen[f.SourceID] = true
		out = append(out, f.SourceID)
	}
	return out
}

// Empty reports whether no usable context was found
func (r Result) Empty() bool {
	return r.Context() == ""
}

// Engine finds knowledge relevant to a question
type Engine struct {
	chunks   domain.KnowledgeRepository
	pool     *Pool
	embedder Embedder
	topK     int
	timeout  time.Duration
}

// NewEngine creates a retrieval engine. Zero topK/timeout select defaults.
func NewEngine(chunks domain.KnowledgeRepository, pool *Pool, embedder Embedder, topK int, timeout time.Duration) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &Engine{
		chunks:   chunks,
		pool:     pool,
		embedder: embedder,
		topK:     topK,
		timeout:  timeout,
	}
}

// Retrieve returns up to topK fragments for query. It never fails: a bot
// without chunks, an unreachable index or an embedding error all yield an
// empty result.
func (e *Engine) Retrieve(ctx context.Context, botID uuid.UUID, query string) Result {
	if e == nil || e.embedder == nil || strings.TrimSpace(query) == "" {
		return Result{}
	}

	logger := log.With().Str("bot_id", botID.String()).Logger()

	ref, err := e.chunks.FirstChunkForBot(ctx, botID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load chunk reference")
		metrics.Retrievals.WithLabelValues(metrics.RetrievalError).Inc()
		return Result{}
	}
	if ref == nil {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalEmpty).Inc()
		return Result{}
	}
	if ref.EmbeddingModel != "" && ref.EmbeddingModel != e.embedder.Model() {
		logger.Warn().
			Str("indexed_with", ref.EmbeddingModel).
			Str("embedder", e.embedder.Model()).
			Msg("Knowledge was indexed with a different embedding model; reindex required")
		metrics.Retrievals.WithLabelValues(metrics.RetrievalMismatch).Inc()
		return Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to embed query")
		metrics.Retrievals.WithLabelValues(metrics.RetrievalError).Inc()
		return Result{}
	}

	idx, err := e.pool.Get(ctx, ref.Index)
	if err != nil {
		logger.Warn().Err(err).Msg("Vector index unavailable")
		metrics.Retrievals.WithLabelValues(metrics.RetrievalError).Inc()
		return Result{}
	}

	collection := ref.Collection
	if collection == "" {
		collection = domain.CollectionForBot(botID)
	}

	hits, err := idx.Search(ctx, collection, vector, uint64(e.topK))
	if err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("Vector search failed")
		metrics.Retrievals.WithLabelValues(metrics.RetrievalError).Inc()
		return Result{}
	}

	res := Result{Fragments: make([]Fragment, 0, len(hits))}
	for _, h := range hits {
		res.Fragments = append(res.Fragments, Fragment{Text: h.Text, SourceID: h.SourceID})
	}

	if res.Empty() {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalEmpty).Inc()
	} else {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalHit).Inc()
	}
	return res
}
