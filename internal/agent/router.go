package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Agent is anything that can process a RunRequest. *Loop is the only
// implementation today; the interface exists so the router doesn't need to
// know about Loop's construction details.
type Agent interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ResolverFunc lazily builds (or looks up) the Agent for an agent key or
// UUID string. Used in managed mode, where agents are built from config on
// first use (see NewConfigResolver) rather than all created eagerly at startup.
type ResolverFunc func(agentKey string) (Agent, error)

type agentEntry struct {
	agent Agent
}

// Router caches resolved agents by key and serves Get/List for the gateway
// and scheduler. In standalone mode, agents are registered eagerly via Set;
// in managed mode, a ResolverFunc builds and caches them lazily on first Get.
type Router struct {
	mu       sync.Mutex
	agents   map[string]*agentEntry
	resolver ResolverFunc
}

// NewRouter creates an empty Router. Call SetResolver for managed mode, or
// Set to register agents directly in standalone mode.
func NewRouter() *Router {
	return &Router{agents: make(map[string]*agentEntry)}
}

// SetResolver installs the lazy-resolution function used when Get misses
// the cache. Safe to call once during startup before any Get.
func (r *Router) SetResolver(fn ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = fn
}

// Set registers an agent directly under agentKey, bypassing the resolver.
// Used by standalone mode, where every configured agent is built eagerly.
func (r *Router) Set(agentKey string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentKey] = &agentEntry{agent: a}
}

// Get returns the agent for agentKey, resolving and caching it via the
// installed ResolverFunc on a cache miss.
func (r *Router) Get(agentKey string) (Agent, error) {
	r.mu.Lock()
	if entry, ok := r.agents[agentKey]; ok {
		r.mu.Unlock()
		return entry.agent, nil
	}
	resolver := r.resolver
	r.mu.Unlock()

	if resolver == nil {
		return nil, fmt.Errorf("agent not found: %s", agentKey)
	}
	a, err := resolver(agentKey)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.agents[agentKey] = &agentEntry{agent: a}
	r.mu.Unlock()
	return a, nil
}

// List returns the keys of every currently-cached agent, sorted.
// In managed mode this only reflects agents resolved so far, not every
// agent defined in config.
func (r *Router) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
