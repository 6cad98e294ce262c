package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessLevel controls which agents in a tenant can see a shared-knowledge
// item.
type AccessLevel string

const (
	AccessLevelPublic     AccessLevel = "public"     // every agent in the tenant
	AccessLevelRestricted AccessLevel = "restricted"  // only agents listed in AccessibleTo
	AccessLevelPrivate    AccessLevel = "private"     // only the authoring agent
)

// SharedKnowledge is one item in the tenant's shared-knowledge pool.
type SharedKnowledge struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	SharedByAgent uuid.UUID
	Content      string
	Topic        string
	AccessLevel  AccessLevel
	AccessibleTo []uuid.UUID // agent ids; only meaningful when AccessLevel == restricted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// visibleTo reports whether an item is visible to agentID, applying the
// three access levels.
func (sk SharedKnowledge) visibleTo(agentID uuid.UUID) bool {
	switch sk.AccessLevel {
	case AccessLevelPublic:
		return true
	case AccessLevelPrivate:
		return sk.SharedByAgent == agentID
	case AccessLevelRestricted:
		if sk.SharedByAgent == agentID {
			return true
		}
		for _, id := range sk.AccessibleTo {
			if id == agentID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// VisibleTo filters items to those visible to agentID — exported so callers
// (the memory manager's `shared` section of get_context) don't need to
// duplicate the access-level switch.
func VisibleTo(items []SharedKnowledge, agentID uuid.UUID) []SharedKnowledge {
	out := make([]SharedKnowledge, 0, len(items))
	for _, it := range items {
		if it.visibleTo(agentID) {
			out = append(out, it)
		}
	}
	return out
}

// SharedKnowledgeStore persists the tenant-scoped shared-knowledge pool.
type SharedKnowledgeStore interface {
	Create(ctx context.Context, item SharedKnowledge) (*SharedKnowledge, error)
	// ListVisible returns every item in the tenant that agentID can see,
	// already filtered by access level.
	ListVisible(ctx context.Context, tenantID, agentID uuid.UUID) ([]SharedKnowledge, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}
