package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// IsolationMode controls how an agent's memory keys are scoped across
// senders and channels.
type IsolationMode string

const (
	IsolationShared          IsolationMode = "shared"
	IsolationChannelIsolated IsolationMode = "channel_isolated"
	IsolationIsolated        IsolationMode = "isolated"
)

// MemoryKeyInput carries everything the memory-key derivation rule needs.
type MemoryKeyInput struct {
	AgentID      uuid.UUID
	Sender       string
	ProjectID    string
	Isolation    IsolationMode
	ChatOrSender string // chat id for group channels, sender id for DMs
	ContactID    *uuid.UUID
}

// DeriveMemoryKey implements the memory-key derivation table.
// project_id, when set, wins regardless of isolation mode.
func DeriveMemoryKey(in MemoryKeyInput) string {
	if in.ProjectID != "" {
		return fmt.Sprintf("project_%s:sender_%s", in.ProjectID, in.Sender)
	}
	switch in.Isolation {
	case IsolationShared:
		return fmt.Sprintf("agent_%s:shared", in.AgentID)
	case IsolationChannelIsolated:
		discriminator := in.ChatOrSender
		if discriminator == "" {
			discriminator = in.Sender
		}
		return fmt.Sprintf("agent_%s:channel_%s", in.AgentID, discriminator)
	case IsolationIsolated:
		if in.ContactID != nil {
			return fmt.Sprintf("agent_%s:contact_%s", in.AgentID, in.ContactID)
		}
		return fmt.Sprintf("agent_%s:sender_%s", in.AgentID, in.Sender)
	default:
		return fmt.Sprintf("agent_%s:sender_%s", in.AgentID, in.Sender)
	}
}

// hashMemoryKey turns a memory key into the short token MessagesCollection
// expects — raw keys contain ':' and other characters chromem-go's on-disk
// collection names reject.
func hashMemoryKey(memoryKey string) string {
	sum := sha1.Sum([]byte(memoryKey))
	return hex.EncodeToString(sum[:])[:16]
}

// AgentMemoryConfig configures one agent's memory façade.
type AgentMemoryConfig struct {
	AgentID  uuid.UUID
	TenantID uuid.UUID

	Isolation IsolationMode

	RingSize         int     // default 10
	EpisodicK        int     // default 5
	MinSimilarity    float64 // default 0.3
	MaxContextChars  int     // default 50000
	AutoExtract      bool
	ExtractThreshold int // default 6; lowered to 2 when AdaptivePersonalityEnabled

	// AdaptivePersonalityEnabled suppresses the "what I know about this
	// user" block in FormatContext, since that skill injects its own style
	// block instead, and lowers the extraction threshold.
	AdaptivePersonalityEnabled bool
}

func (c AgentMemoryConfig) withDefaults() AgentMemoryConfig {
	if c.RingSize <= 0 {
		c.RingSize = 10
	}
	if c.EpisodicK <= 0 {
		c.EpisodicK = 5
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.3
	}
	if c.ExtractThreshold <= 0 {
		c.ExtractThreshold = 6
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = 50000
	}
	return c
}

// AgentMemory is the per-agent memory façade: add_message/get_context
// over a working ring (Postgres-persisted), episodic recall (vector
// store), durable facts, and the tenant's shared-knowledge pool.
type AgentMemory struct {
	cfg AgentMemoryConfig

	rings     store.MemoryStore
	vectors   *VectorStore
	facts     store.FactStore
	shared    store.SharedKnowledgeStore
	embedder  Embedder
	extractor *Extractor
}

func NewAgentMemory(cfg AgentMemoryConfig, rings store.MemoryStore, vectors *VectorStore, facts store.FactStore, shared store.SharedKnowledgeStore, embedder Embedder, extractor *Extractor) *AgentMemory {
	return &AgentMemory{
		cfg:       cfg.withDefaults(),
		rings:     rings,
		vectors:   vectors,
		facts:     facts,
		shared:    shared,
		embedder:  embedder,
		extractor: extractor,
	}
}

func (m *AgentMemory) deriveKey(sender, projectID, chatOrSender string, contactID *uuid.UUID) string {
	return DeriveMemoryKey(MemoryKeyInput{
		AgentID:      m.cfg.AgentID,
		Sender:       sender,
		ProjectID:    projectID,
		Isolation:    m.cfg.Isolation,
		ChatOrSender: chatOrSender,
		ContactID:    contactID,
	})
}

// AddMessageInput is the add_message call's arguments.
type AddMessageInput struct {
	Sender       string
	Role         store.MemoryRole
	Content      string
	Metadata     map[string]string
	ProjectID    string
	ChatOrSender string
	ContactID    *uuid.UUID
}

// AddMessage appends content to the per-(agent, memory_key) working ring,
// persists the ring after every write (crash-durable), upserts an embedding
// for user messages into the vector store, and fires the fact extractor
// when auto-extract is enabled and the trigger condition fires.
func (m *AgentMemory) AddMessage(ctx context.Context, in AddMessageInput) error {
	memoryKey := m.deriveKey(in.Sender, in.ProjectID, in.ChatOrSender, in.ContactID)

	ring, err := m.rings.GetRing(ctx, m.cfg.AgentID, memoryKey)
	if err != nil {
		return fmt.Errorf("agent memory: get ring: %w", err)
	}

	entry := store.MemoryEntry{Role: in.Role, Content: in.Content, Metadata: in.Metadata, At: time.Now()}
	ring.Entries = append(ring.Entries, entry)
	if len(ring.Entries) > m.cfg.RingSize {
		ring.Entries = ring.Entries[len(ring.Entries)-m.cfg.RingSize:]
	}
	if in.Role == store.MemoryRoleUser {
		ring.MessagesSinceExtraction++
	}

	if err := m.rings.SaveRing(ctx, m.cfg.AgentID, memoryKey, *ring); err != nil {
		return fmt.Errorf("agent memory: save ring: %w", err)
	}

	if in.Role == store.MemoryRoleUser && m.embedder != nil && m.vectors != nil {
		if err := m.indexMessage(ctx, memoryKey, entry); err != nil {
			return err
		}
	}

	if in.Role == store.MemoryRoleUser && m.cfg.AutoExtract && m.extractor != nil {
		threshold := m.cfg.ExtractThreshold
		if m.cfg.AdaptivePersonalityEnabled && threshold > 2 {
			threshold = 2
		}
		trigger := ExtractionTrigger{MessagesSinceExtraction: ring.MessagesSinceExtraction, Threshold: threshold, LatestUserMessage: in.Content}
		if ShouldExtract(trigger) {
			excerpt := excerptRing(*ring)
			if _, _, extractErr := m.extractor.ExtractAndStore(ctx, m.cfg.AgentID, in.Sender, excerpt); extractErr == nil {
				ring.MessagesSinceExtraction = 0
				_ = m.rings.SaveRing(ctx, m.cfg.AgentID, memoryKey, *ring)
			}
			// Extraction failures never fail the caller's write.
		}
	}

	return nil
}

func (m *AgentMemory) indexMessage(ctx context.Context, memoryKey string, entry store.MemoryEntry) error {
	vecs, err := m.embedder.Embed(ctx, []string{entry.Content})
	if err != nil || len(vecs) == 0 {
		return fmt.Errorf("agent memory: embed message: %w", err)
	}
	collection := MessagesCollection(m.cfg.AgentID.String(), hashMemoryKey(memoryKey))
	meta := map[string]string{"memory_key": memoryKey, "role": string(entry.Role)}
	for k, v := range entry.Metadata {
		meta[k] = v
	}
	id := fmt.Sprintf("%s:%d", memoryKey, entry.At.UnixNano())
	return m.vectors.Upsert(ctx, collection, id, vecs[0], meta, entry.Content)
}

func excerptRing(ring store.MemoryRing) string {
	var sb strings.Builder
	for _, e := range ring.Entries {
		sb.WriteString(string(e.Role))
		sb.WriteString(": ")
		sb.WriteString(e.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// GetContextInput is the get_context call's arguments.
type GetContextInput struct {
	Sender       string
	Query        string
	ProjectID    string
	ChatOrSender string
	ContactID    *uuid.UUID
}

// Context is the get_context result shape.
type Context struct {
	Working  []store.MemoryEntry
	Episodic []Match
	Facts    map[store.FactTopic][]store.Fact
	Shared   []store.SharedKnowledge
}

// GetContext assembles {working, episodic, facts, shared} for one
// (agent, sender) pair, ready for FormatContext to render.
func (m *AgentMemory) GetContext(ctx context.Context, in GetContextInput) (*Context, error) {
	memoryKey := m.deriveKey(in.Sender, in.ProjectID, in.ChatOrSender, in.ContactID)

	ring, err := m.rings.GetRing(ctx, m.cfg.AgentID, memoryKey)
	if err != nil {
		return nil, fmt.Errorf("agent memory: get ring: %w", err)
	}

	result := &Context{Working: ring.Entries, Facts: map[store.FactTopic][]store.Fact{}}

	if in.Query != "" && m.embedder != nil && m.vectors != nil {
		episodic, err := m.searchEpisodic(ctx, memoryKey, in.Query)
		if err != nil {
			return nil, err
		}
		result.Episodic = episodic
	}

	if m.facts != nil {
		if facts, err := m.facts.ListByUser(ctx, m.cfg.AgentID, in.Sender); err == nil {
			for _, f := range facts {
				result.Facts[f.Topic] = append(result.Facts[f.Topic], f)
			}
		}
	}

	if m.shared != nil {
		if shared, err := m.shared.ListVisible(ctx, m.cfg.TenantID, m.cfg.AgentID); err == nil {
			result.Shared = shared
		}
	}

	return result, nil
}

func (m *AgentMemory) searchEpisodic(ctx context.Context, memoryKey, query string) ([]Match, error) {
	vecs, err := m.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("agent memory: embed query: %w", err)
	}
	collection := MessagesCollection(m.cfg.AgentID.String(), hashMemoryKey(memoryKey))
	matches, err := m.vectors.Search(ctx, collection, vecs[0], m.cfg.EpisodicK, map[string]string{"memory_key": memoryKey})
	if err != nil {
		return nil, fmt.Errorf("agent memory: search episodic: %w", err)
	}
	filtered := make([]Match, 0, len(matches))
	for _, match := range matches {
		similarity := 1 / (1 + float64(match.Distance))
		if similarity >= m.cfg.MinSimilarity {
			filtered = append(filtered, match)
		}
	}
	return filtered, nil
}
