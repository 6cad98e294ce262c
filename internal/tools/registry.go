package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// Tool is implemented by every built-in, MCP-bridged, and dynamic tool.
// Parameters returns a JSON-schema-shaped map describing Execute's args.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds the set of tools available to an agent loop, plus the
// optional rate limiter and scrubbing toggle the loop consults before and
// after each Execute call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	limiter  *ToolRateLimiter
	scrubPII bool
}

// NewRegistry returns an empty registry with PII scrubbing on by default.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), scrubPII: true}
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name; no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names, unordered.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ProviderDefs returns every registered tool's schema in LLM provider format,
// with no policy filtering applied (see PolicyEngine.FilterTools for that).
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToProviderDef(t))
	}
	return defs
}

// SetRateLimiter installs a per-tool-call rate limiter; pass nil to disable.
func (r *Registry) SetRateLimiter(limiter *ToolRateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = limiter
}

// SetScrubbing toggles whether Execute redacts likely secrets/PII from tool
// output before returning it (see scrub.go). Standalone mode disables it by
// default for local single-user runs.
func (r *Registry) SetScrubbing(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrubPII = enabled
}

// Execute runs the named tool's Execute, applying the rate limiter (if set)
// and output scrubbing (if enabled) around the call.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	limiter := r.limiter
	scrub := r.scrubPII
	r.mu.RUnlock()

	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	if limiter != nil {
		if !limiter.Allow(name) {
			return ErrorResult(fmt.Sprintf("tool %q rate limit exceeded, try again later", name))
		}
	}

	result := t.Execute(ctx, args)
	if scrub && result != nil {
		result.ForLLM = scrubSecrets(result.ForLLM)
		if result.ForUser != "" {
			result.ForUser = scrubSecrets(result.ForUser)
		}
	}
	return result
}

// ExecuteWithContext is Execute plus the per-call routing context (source
// channel/chat/peer, session key, and an optional async callback for tools
// like spawn that report their result after the triggering turn returns).
func (r *Registry) ExecuteWithContext(ctx context.Context, name string, args map[string]interface{}, channel, chatID, peerKind, sessionKey string, asyncCB AsyncCallback) *Result {
	ctx = WithToolChannel(ctx, channel)
	ctx = WithToolChatID(ctx, chatID)
	ctx = WithToolPeerKind(ctx, peerKind)
	ctx = WithToolSessionKey(ctx, sessionKey)
	if asyncCB != nil {
		ctx = WithToolAsyncCB(ctx, asyncCB)
	}
	return r.Execute(ctx, name, args)
}

// ToProviderDef converts a Tool into the provider-facing schema shape.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
