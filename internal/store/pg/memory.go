package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// PGMemoryConfig tunes PGMemoryStore's working-ring behavior.
type PGMemoryConfig struct {
	RingSize int // default 10
}

func DefaultPGMemoryConfig() PGMemoryConfig {
	return PGMemoryConfig{RingSize: 10}
}

// PGMemoryStore implements store.MemoryStore backed by Postgres, caching hot
// rings the same way PGSessionStore caches hot sessions
// (internal/store/pg/sessions.go).
type PGMemoryStore struct {
	db  *sql.DB
	cfg PGMemoryConfig

	mu    sync.RWMutex
	cache map[string]*store.MemoryRing // key: agentID.String()+":"+memoryKey
}

func NewPGMemoryStore(db *sql.DB, cfg PGMemoryConfig) *PGMemoryStore {
	if cfg.RingSize <= 0 {
		cfg.RingSize = 10
	}
	return &PGMemoryStore{db: db, cfg: cfg, cache: make(map[string]*store.MemoryRing)}
}

func memoryCacheKey(agentID uuid.UUID, memoryKey string) string {
	return agentID.String() + ":" + memoryKey
}

func (s *PGMemoryStore) GetRing(ctx context.Context, agentID uuid.UUID, memoryKey string) (*store.MemoryRing, error) {
	ck := memoryCacheKey(agentID, memoryKey)

	s.mu.RLock()
	if r, ok := s.cache[ck]; ok {
		s.mu.RUnlock()
		return cloneRing(r), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.cache[ck]; ok {
		return cloneRing(r), nil
	}

	ring, err := s.loadFromDB(ctx, agentID, memoryKey)
	if err != nil {
		return nil, err
	}
	if ring == nil {
		ring = &store.MemoryRing{MemoryKey: memoryKey, UpdatedAt: time.Now()}
	}
	s.cache[ck] = ring
	return cloneRing(ring), nil
}

func (s *PGMemoryStore) SaveRing(ctx context.Context, agentID uuid.UUID, memoryKey string, ring store.MemoryRing) error {
	ring.UpdatedAt = time.Now()

	ck := memoryCacheKey(agentID, memoryKey)
	s.mu.Lock()
	s.cache[ck] = cloneRing(&ring)
	s.mu.Unlock()

	entriesJSON, err := json.Marshal(ring.Entries)
	if err != nil {
		return fmt.Errorf("memory store: encode entries: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agent_memory (id, agent_id, memory_key, entries, messages_since_extraction, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (agent_id, memory_key) DO UPDATE SET
		   entries = EXCLUDED.entries,
		   messages_since_extraction = EXCLUDED.messages_since_extraction,
		   updated_at = EXCLUDED.updated_at`,
		uuid.Must(uuid.NewV7()), agentID, memoryKey, entriesJSON, ring.MessagesSinceExtraction, ring.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("memory store: save ring: %w", err)
	}
	return nil
}

func (s *PGMemoryStore) DeleteRing(ctx context.Context, agentID uuid.UUID, memoryKey string) error {
	s.mu.Lock()
	delete(s.cache, memoryCacheKey(agentID, memoryKey))
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_memory WHERE agent_id = $1 AND memory_key = $2`, agentID, memoryKey)
	return err
}

func (s *PGMemoryStore) loadFromDB(ctx context.Context, agentID uuid.UUID, memoryKey string) (*store.MemoryRing, error) {
	var entriesJSON []byte
	var sinceExtraction int
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT entries, messages_since_extraction, updated_at FROM agent_memory WHERE agent_id = $1 AND memory_key = $2`,
		agentID, memoryKey,
	).Scan(&entriesJSON, &sinceExtraction, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory store: load ring: %w", err)
	}

	var entries []store.MemoryEntry
	if err := json.Unmarshal(entriesJSON, &entries); err != nil {
		return nil, fmt.Errorf("memory store: decode entries: %w", err)
	}

	return &store.MemoryRing{
		MemoryKey:               memoryKey,
		Entries:                 entries,
		MessagesSinceExtraction: sinceExtraction,
		UpdatedAt:               updatedAt,
	}, nil
}

func cloneRing(r *store.MemoryRing) *store.MemoryRing {
	cp := *r
	cp.Entries = append([]store.MemoryEntry(nil), r.Entries...)
	return &cp
}
