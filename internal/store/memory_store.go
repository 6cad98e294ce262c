package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryRole classifies one entry in an agent's working-memory ring.
type MemoryRole string

const (
	MemoryRoleUser      MemoryRole = "user"
	MemoryRoleAssistant MemoryRole = "assistant"
	MemoryRoleTool      MemoryRole = "tool"
)

// MemoryEntry is one turn in the working-memory ring.
type MemoryEntry struct {
	Role     MemoryRole
	Content  string
	Metadata map[string]string
	At       time.Time
}

// MemoryRing is the persisted working-memory window for one (agent,
// memory_key) pair. Entries is capped at the configured ring
// size by the caller (internal/memory.AgentMemory) before SaveRing runs.
type MemoryRing struct {
	MemoryKey               string
	Entries                 []MemoryEntry
	MessagesSinceExtraction int
	UpdatedAt                time.Time
}

// MemoryStore persists the per-(agent, memory_key) working ring, crash-
// durably, after every add_message write. GetRing never
// returns nil on success — a miss yields a fresh empty ring rather than an
// error, mirroring PGSessionStore.GetOrCreate's "always returns usable
// state" contract.
type MemoryStore interface {
	GetRing(ctx context.Context, agentID uuid.UUID, memoryKey string) (*MemoryRing, error)
	SaveRing(ctx context.Context, agentID uuid.UUID, memoryKey string, ring MemoryRing) error
	DeleteRing(ctx context.Context, agentID uuid.UUID, memoryKey string) error
}
