package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// PGFactStore implements store.FactStore backed by Postgres.
type PGFactStore struct {
	db *sql.DB
}

func NewPGFactStore(db *sql.DB) *PGFactStore {
	return &PGFactStore{db: db}
}

// Upsert applies the fact conflict-resolution rule inside one transaction:
// lock the existing (agent_id, user_key, topic, key) row if present, merge
// or replace per whether the values match, then write.
func (s *PGFactStore) Upsert(ctx context.Context, fact store.Fact) (*store.Fact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing store.Fact
	err = tx.QueryRowContext(ctx, `
		SELECT id, agent_id, user_key, topic, key, value, confidence, repeat_count, learned_at, updated_at
		FROM facts WHERE agent_id = $1 AND user_key = $2 AND topic = $3 AND key = $4
		FOR UPDATE`,
		fact.AgentID, fact.UserKey, fact.Topic, fact.Key,
	).Scan(&existing.ID, &existing.AgentID, &existing.UserKey, &existing.Topic, &existing.Key,
		&existing.Value, &existing.Confidence, &existing.RepeatCount, &existing.LearnedAt, &existing.UpdatedAt)

	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if fact.ID == uuid.Nil {
			fact.ID = store.GenNewID()
		}
		fact.RepeatCount = 1
		fact.LearnedAt = now
		fact.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO facts (id, agent_id, user_key, topic, key, value, confidence, repeat_count, learned_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			fact.ID, fact.AgentID, fact.UserKey, fact.Topic, fact.Key, fact.Value, fact.Confidence, fact.RepeatCount, fact.LearnedAt, fact.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &fact, nil

	case err != nil:
		return nil, err
	}

	merged := existing
	merged.UpdatedAt = now
	if existing.Value == fact.Value {
		merged.RepeatCount = existing.RepeatCount + 1
		conf := 0.6*existing.Confidence + 0.4*fact.Confidence + 0.1*float64(merged.RepeatCount-1)
		if conf > 1.0 {
			conf = 1.0
		}
		merged.Confidence = conf
	} else if fact.Confidence > existing.Confidence {
		merged.Value = fact.Value
		merged.Confidence = fact.Confidence
		merged.RepeatCount = 1
	}
	// else: existing side has higher confidence, keep it entirely (loser discarded).

	if _, err := tx.ExecContext(ctx, `
		UPDATE facts SET value = $1, confidence = $2, repeat_count = $3, updated_at = $4 WHERE id = $5`,
		merged.Value, merged.Confidence, merged.RepeatCount, merged.UpdatedAt, merged.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *PGFactStore) Get(ctx context.Context, agentID uuid.UUID, userKey string, topic store.FactTopic, key string) (*store.Fact, error) {
	var f store.Fact
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, user_key, topic, key, value, confidence, repeat_count, learned_at, updated_at
		FROM facts WHERE agent_id = $1 AND user_key = $2 AND topic = $3 AND key = $4`,
		agentID, userKey, topic, key,
	).Scan(&f.ID, &f.AgentID, &f.UserKey, &f.Topic, &f.Key, &f.Value, &f.Confidence, &f.RepeatCount, &f.LearnedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PGFactStore) ListByUser(ctx context.Context, agentID uuid.UUID, userKey string) ([]store.Fact, error) {
	return s.query(ctx, `
		SELECT id, agent_id, user_key, topic, key, value, confidence, repeat_count, learned_at, updated_at
		FROM facts WHERE agent_id = $1 AND user_key = $2 ORDER BY topic, key`, agentID, userKey)
}

func (s *PGFactStore) ListByTopic(ctx context.Context, agentID uuid.UUID, userKey string, topic store.FactTopic) ([]store.Fact, error) {
	return s.query(ctx, `
		SELECT id, agent_id, user_key, topic, key, value, confidence, repeat_count, learned_at, updated_at
		FROM facts WHERE agent_id = $1 AND user_key = $2 AND topic = $3 ORDER BY key`, agentID, userKey, topic)
}

func (s *PGFactStore) query(ctx context.Context, q string, args ...any) ([]store.Fact, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Fact
	for rows.Next() {
		var f store.Fact
		if err := rows.Scan(&f.ID, &f.AgentID, &f.UserKey, &f.Topic, &f.Key, &f.Value, &f.Confidence, &f.RepeatCount, &f.LearnedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PGFactStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = $1`, id)
	return err
}
