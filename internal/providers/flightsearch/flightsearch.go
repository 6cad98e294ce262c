// Package flightsearch mirrors internal/providers/tts's registry shape for
// flight-search backends (amadeus, google-flights), using the go-resty
// client the same way web search's brave/ddg providers use net/http.
package flightsearch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Query describes one flight search request.
type Query struct {
	Origin      string // IATA code
	Destination string // IATA code
	DepartDate  string // YYYY-MM-DD
	ReturnDate  string // YYYY-MM-DD, empty for one-way
	Adults      int
	CabinClass  string // "economy", "premium_economy", "business", "first"
}

// Offer is one priced itinerary returned by a provider.
type Offer struct {
	Airline     string
	FlightNo    string
	DepartTime  time.Time
	ArriveTime  time.Time
	DurationMin int
	Stops       int
	Price       float64
	Currency    string
	BookingURL  string
}

// Provider searches flights through one backend API.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Offer, error)
}

// Registry holds configured flight-search providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // search priority, registration order
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("flight search provider %q not configured", name)
	}
	return p, nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// SearchFirst tries providers in registration order, returning the first
// successful non-empty result set.
func (r *Registry) SearchFirst(ctx context.Context, q Query) ([]Offer, string, error) {
	names := r.List()
	if len(names) == 0 {
		return nil, "", fmt.Errorf("flight search: no providers configured")
	}
	var lastErr error
	for _, name := range names {
		p, _ := r.Get(name)
		offers, err := p.Search(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		if len(offers) > 0 {
			return offers, name, nil
		}
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("flight search: all providers failed, last error: %w", lastErr)
	}
	return nil, "", nil
}
