package llm

import (
	"sort"
	"strings"
	"sync"
)

// Router maps provider names to adapters
type Router struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRouter creates an empty provider router
func NewRouter(providers ...Provider) *Router {
	r := &Router{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.RegisterProvider(p)
	}
	return r
}

// RegisterProvider registers an LLM provider
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(provider.Name())] = provider
}

// GetProvider returns a provider by name, case-insensitively
func (r *Router) GetProvider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ListProviders returns the registered provider names, sorted
func (r *Router) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderInfo contains information about an LLM provider
type ProviderInfo struct {
	Name         string `json:"name"`
	DefaultModel string `json:"default_model"`
}

// GetProvidersInfo returns information about all providers
func (r *Router) GetProvidersInfo() []ProviderInfo {
	names := r.ListProviders()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, ProviderInfo{Name: name, DefaultModel: r.providers[name].DefaultModel()})
	}
	return infos
}
