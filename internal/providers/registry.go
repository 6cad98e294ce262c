package providers

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds configured LLM providers by name, the same Register/Get/
// List shape used by the tts and flightsearch registries in
// internal/providers/tts and internal/providers/flightsearch; HealthCheck
// exists only on this registry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider under its own Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the named provider, or ErrNotConfigured if it isn't registered.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", name, ErrNotConfigured)
	}
	return p, nil
}

// List returns the names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// HealthCheck runs a minimal Chat call against the named provider to confirm
// it is reachable and credentialed, without caring about the reply content.
func (r *Registry) HealthCheck(ctx context.Context, name string) error {
	p, err := r.Get(name)
	if err != nil {
		return err
	}
	_, err = p.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: "ping"}},
		Options:  map[string]interface{}{"max_tokens": 1},
	})
	return err
}
