package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
)

// Pool keeps one Index per server location. Chunks carry their own
// location, so different bots may be served by different servers.
type Pool struct {
	factory IndexFactory
	pool    map[string]Index
	mu      sync.RWMutex
}

// NewPool creates an empty pool
func NewPool(factory IndexFactory) *Pool {
	return &Pool{
		factory: factory,
		pool:    make(map[string]Index),
	}
}

// Get returns a healthy index for loc, connecting if needed
func (p *Pool) Get(ctx context.Context, loc domain.IndexLocation) (Index, error) {
	key := loc.Key()

	p.mu.RLock()
	if idx, ok := p.pool[key]; ok {
		p.mu.RUnlock()
		if err := idx.HealthCheck(ctx); err == nil {
			return idx, nil
		}
		log.Warn().Str("index", key).Msg("Vector index unhealthy, reconnecting")
		p.mu.Lock()
		if cur, ok := p.pool[key]; ok && cur == idx {
			idx.Close()
			delete(p.pool, key)
		}
		p.mu.Unlock()
	} else {
		p.mu.RUnlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have reconnected while we waited
	if idx, ok := p.pool[key]; ok {
		return idx, nil
	}

	idx, err := p.factory(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vector index %s: %w", key, err)
	}
	p.pool[key] = idx
	return idx, nil
}

// CloseAll closes every pooled index
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, idx := range p.pool {
		if err := idx.Close(); err != nil {
			log.Warn().Err(err).Str("index", key).Msg("Failed to close vector index")
		}
		delete(p.pool, key)
	}
}

// Size returns the number of pooled connections
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pool)
}
