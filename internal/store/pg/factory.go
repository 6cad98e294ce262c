package pg

import (
	"fmt"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// Config bounds what a Postgres-backed deployment needs: a DSN and an
// optional encryption key for at-rest secrets in the stores that use one.
type Config struct {
	PostgresDSN      string
	EncryptionKey    string
	SkillsStorageDir string
}

// NewPGStores creates the Postgres-backed stores: sessions, memory, facts,
// shared knowledge, contacts, and skills. Cron and pairing stay file-backed
// regardless of mode — they're single-process bookkeeping, not
// multi-tenant state.
func NewPGStores(cfg Config) (*store.Stores, error) {
	db, err := OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	memCfg := DefaultPGMemoryConfig()

	skillsDir := cfg.SkillsStorageDir
	if skillsDir == "" {
		skillsDir = "~/.goclaw/skills-store"
	}

	return &store.Stores{
		Sessions:        NewPGSessionStore(db),
		Memory:          NewPGMemoryStore(db, memCfg),
		Facts:           NewPGFactStore(db),
		SharedKnowledge: NewPGSharedKnowledgeStore(db),
		Contacts:        NewPGContactStore(db),
		Skills:          NewPGSkillStore(db, skillsDir),
	}, nil
}
