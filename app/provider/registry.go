package provider

import (
	"errors"
	"strings"
	"sync"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

// Registry maps method identifiers and provider names to adapters. It is
// populated at startup and read on every dispatch; Register replaces an
// existing entry, which supports sandbox/production cutover without a
// restart.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(key string, p Provider) {
	key = normalizeKey(key)
	if key == "" || p == nil {
		return
	}
	r.mu.Lock()
	r.providers[key] = p
	r.mu.Unlock()
}

func (r *Registry) Get(key string) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[normalizeKey(key)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return p, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
