// Package tts provides text-to-speech providers behind a small registry,
// the same Register/Get/List shape as internal/providers.Registry. No
// dedicated Go SDK exists in the retrieval pack for OpenAI TTS, ElevenLabs,
// or Kokoro, so each provider here speaks raw HTTP via net/http — documented
// as the standard-library exception in DESIGN.md.
package tts

import (
	"context"
	"fmt"
	"sync"
)

// AutoMode controls whether the manager silently falls back across
// providers on failure ("auto") or surfaces the primary's error ("strict").
type AutoMode string

const (
	AutoModeAuto   AutoMode = "auto"
	AutoModeStrict AutoMode = "strict"
)

// Options customizes one Synthesize call.
type Options struct {
	Voice  string
	Format string // "mp3", "ogg", "wav" — provider-specific, default provider picks its own
	Speed  float64
}

// Provider synthesizes speech from text, returning encoded audio bytes and
// the MIME type of the result.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, opts Options) (audio []byte, mimeType string, err error)
}

// Registry holds configured TTS providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("tts provider %q not configured", name)
	}
	return p, nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Manager picks a primary TTS provider and, in auto mode, falls back through
// the fallbackOrder list given to NewManager when the primary fails.
type Manager struct {
	registry *Registry
	primary  string
	mode     AutoMode
	order    []string
}

// NewManager builds a manager with primary as the first provider tried.
// fallbackOrder lists the remaining providers to try in auto mode.
func NewManager(registry *Registry, primary string, mode AutoMode, fallbackOrder []string) *Manager {
	return &Manager{registry: registry, primary: primary, mode: mode, order: fallbackOrder}
}

func (m *Manager) PrimaryProvider() string { return m.primary }
func (m *Manager) AutoMode() AutoMode      { return m.mode }

// Synthesize calls the primary provider, falling back through m.order on
// failure when AutoMode is "auto".
func (m *Manager) Synthesize(ctx context.Context, text string, opts Options) ([]byte, string, error) {
	names := append([]string{m.primary}, m.order...)
	var lastErr error
	for i, name := range names {
		p, err := m.registry.Get(name)
		if err != nil {
			lastErr = err
			continue
		}
		audio, mime, err := p.Synthesize(ctx, text, opts)
		if err == nil {
			return audio, mime, nil
		}
		lastErr = err
		if m.mode != AutoModeAuto || i == len(names)-1 {
			break
		}
	}
	return nil, "", fmt.Errorf("tts: all providers failed: %w", lastErr)
}
