package store

import (
	"context"
	"time"
)

// SkillRecord is a stored skill bundle: its declarative metadata and
// content, plus an optional embedding for semantic skill_search.
type SkillRecord struct {
	Name        string
	Description string
	Content     string
	Path        string
	Embedding   []float32
	UpdatedAt   time.Time
}

// SkillStore persists skill bundle metadata, independent of where the
// SKILL.md files themselves physically live: Postgres in managed mode
// (PGSkillStore), or the filesystem directly in standalone mode (a thin
// wrapper over skills.Loader).
type SkillStore interface {
	List(ctx context.Context) ([]SkillRecord, error)
	Get(ctx context.Context, name string) (*SkillRecord, error)
	Create(ctx context.Context, rec SkillRecord) error
	Update(ctx context.Context, rec SkillRecord) error
	Delete(ctx context.Context, name string) error
}
