package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FactTopic is a topic from the fixed vocabulary facts are classified into.
type FactTopic string

const (
	FactTopicPreferences        FactTopic = "preferences"
	FactTopicPersonalInfo       FactTopic = "personal_info"
	FactTopicHistory            FactTopic = "history"
	FactTopicRelationships      FactTopic = "relationships"
	FactTopicGoals              FactTopic = "goals"
	FactTopicInstructions       FactTopic = "instructions"
	FactTopicCommunicationStyle FactTopic = "communication_style"
	FactTopicInsideJokes        FactTopic = "inside_jokes"
	FactTopicLinguisticPatterns FactTopic = "linguistic_patterns"
)

// ValidFactTopics lists every topic the extractor is allowed to emit.
var ValidFactTopics = []FactTopic{
	FactTopicPreferences, FactTopicPersonalInfo, FactTopicHistory,
	FactTopicRelationships, FactTopicGoals, FactTopicInstructions,
	FactTopicCommunicationStyle, FactTopicInsideJokes, FactTopicLinguisticPatterns,
}

func (t FactTopic) Valid() bool {
	for _, v := range ValidFactTopics {
		if v == t {
			return true
		}
	}
	return false
}

// Fact is one (agent, user_key, topic, key) -> value record.
type Fact struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	UserKey     string
	Topic       FactTopic
	Key         string
	Value       string
	Confidence  float64
	RepeatCount int
	LearnedAt   time.Time
	UpdatedAt   time.Time
}

// FactStore persists learned facts, applying a conflict-resolution rule
// on every Upsert: same value raises confidence
// (0.6*old + 0.4*new + 0.1*(repeat_count-1), capped at 1.0); differing value
// keeps whichever side has higher confidence and discards the other.
type FactStore interface {
	Upsert(ctx context.Context, fact Fact) (*Fact, error)
	Get(ctx context.Context, agentID uuid.UUID, userKey string, topic FactTopic, key string) (*Fact, error)
	ListByUser(ctx context.Context, agentID uuid.UUID, userKey string) ([]Fact, error)
	ListByTopic(ctx context.Context, agentID uuid.UUID, userKey string, topic FactTopic) ([]Fact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
