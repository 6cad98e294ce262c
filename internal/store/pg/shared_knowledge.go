package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// PGSharedKnowledgeStore implements store.SharedKnowledgeStore backed by Postgres.
type PGSharedKnowledgeStore struct {
	db *sql.DB
}

func NewPGSharedKnowledgeStore(db *sql.DB) *PGSharedKnowledgeStore {
	return &PGSharedKnowledgeStore{db: db}
}

func (s *PGSharedKnowledgeStore) Create(ctx context.Context, item store.SharedKnowledge) (*store.SharedKnowledge, error) {
	if item.ID == uuid.Nil {
		item.ID = store.GenNewID()
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_knowledge (id, tenant_id, shared_by_agent, content, topic, access_level, accessible_to, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		item.ID, item.TenantID, item.SharedByAgent, item.Content, item.Topic, item.AccessLevel,
		pq.Array(uuidsToStrings(item.AccessibleTo)), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *PGSharedKnowledgeStore) ListVisible(ctx context.Context, tenantID, agentID uuid.UUID) ([]store.SharedKnowledge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, shared_by_agent, content, topic, access_level, accessible_to, created_at, updated_at
		FROM shared_knowledge WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []store.SharedKnowledge
	for rows.Next() {
		var it store.SharedKnowledge
		var accessibleTo []string
		if err := rows.Scan(&it.ID, &it.TenantID, &it.SharedByAgent, &it.Content, &it.Topic,
			&it.AccessLevel, pq.Array(&accessibleTo), &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		ids, err := stringsToUUIDs(accessibleTo)
		if err != nil {
			return nil, fmt.Errorf("shared_knowledge %s: parse accessible_to: %w", it.ID, err)
		}
		it.AccessibleTo = ids
		all = append(all, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.VisibleTo(all, agentID), nil
}

func (s *PGSharedKnowledgeStore) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	allowed := map[string]bool{"content": true, "topic": true, "access_level": true, "accessible_to": true}
	var sets []string
	var args []any
	i := 1
	for k, v := range updates {
		if !allowed[k] {
			continue
		}
		if k == "accessible_to" {
			if ids, ok := v.([]uuid.UUID); ok {
				v = pq.Array(uuidsToStrings(ids))
			}
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC())
	i++
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE shared_knowledge SET %s WHERE id = $%d`, strings.Join(sets, ", "), i), args...)
	return err
}

func (s *PGSharedKnowledgeStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shared_knowledge WHERE id = $1`, id)
	return err
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func stringsToUUIDs(ss []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ss))
	for i, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
