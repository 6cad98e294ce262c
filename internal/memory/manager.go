package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// MemoryManager multiplexes per-agent AgentMemory façades over one shared
// ring store, vector store, fact store and shared-knowledge pool.
// Each tenant's agents get their own façade, but the underlying vector
// store stays a single process-wide singleton.
type MemoryManager struct {
	rings    store.MemoryStore
	vectors  *VectorStore
	facts    store.FactStore
	shared   store.SharedKnowledgeStore
	embedder Embedder

	mu     sync.Mutex
	agents map[uuid.UUID]*AgentMemory
}

func NewMemoryManager(rings store.MemoryStore, vectors *VectorStore, facts store.FactStore, shared store.SharedKnowledgeStore, embedder Embedder) *MemoryManager {
	return &MemoryManager{
		rings:    rings,
		vectors:  vectors,
		facts:    facts,
		shared:   shared,
		embedder: embedder,
		agents:   make(map[uuid.UUID]*AgentMemory),
	}
}

// SetEmbeddingProvider rewires the embedder future ForAgent calls hand to
// new façades (managed mode resolves the embedding key after startup);
// façades already constructed keep the embedder they were built with.
func (mm *MemoryManager) SetEmbeddingProvider(e Embedder) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.embedder = e
}

// ForAgent returns the cached façade for cfg.AgentID, constructing it with
// extractor (may be nil if auto-extract is unavailable for this agent) on
// first use.
func (mm *MemoryManager) ForAgent(cfg AgentMemoryConfig, extractor *Extractor) *AgentMemory {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if am, ok := mm.agents[cfg.AgentID]; ok {
		return am
	}
	am := NewAgentMemory(cfg, mm.rings, mm.vectors, mm.facts, mm.shared, mm.embedder, extractor)
	mm.agents[cfg.AgentID] = am
	return am
}

// Invalidate drops the cached façade for agentID so the next ForAgent call
// rebuilds it with fresh config (e.g. after an isolation-mode change in the
// agent's settings).
func (mm *MemoryManager) Invalidate(agentID uuid.UUID) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	delete(mm.agents, agentID)
}
