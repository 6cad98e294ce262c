package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// fakeMemoryStore is an in-process store.MemoryStore used to exercise
// AgentMemory without a database.
type fakeMemoryStore struct {
	rings map[string]store.MemoryRing
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{rings: make(map[string]store.MemoryRing)}
}

func (f *fakeMemoryStore) key(agentID uuid.UUID, memoryKey string) string {
	return agentID.String() + ":" + memoryKey
}

func (f *fakeMemoryStore) GetRing(ctx context.Context, agentID uuid.UUID, memoryKey string) (*store.MemoryRing, error) {
	if r, ok := f.rings[f.key(agentID, memoryKey)]; ok {
		cp := r
		cp.Entries = append([]store.MemoryEntry(nil), r.Entries...)
		return &cp, nil
	}
	return &store.MemoryRing{MemoryKey: memoryKey}, nil
}

func (f *fakeMemoryStore) SaveRing(ctx context.Context, agentID uuid.UUID, memoryKey string, ring store.MemoryRing) error {
	f.rings[f.key(agentID, memoryKey)] = ring
	return nil
}

func (f *fakeMemoryStore) DeleteRing(ctx context.Context, agentID uuid.UUID, memoryKey string) error {
	delete(f.rings, f.key(agentID, memoryKey))
	return nil
}

var _ store.MemoryStore = (*fakeMemoryStore)(nil)

// fakeFactStore returns a fixed fact list regardless of arguments.
type fakeFactStore struct {
	facts []store.Fact
}

func (f *fakeFactStore) Upsert(ctx context.Context, fact store.Fact) (*store.Fact, error) {
	return &fact, nil
}
func (f *fakeFactStore) Get(ctx context.Context, agentID uuid.UUID, userKey string, topic store.FactTopic, key string) (*store.Fact, error) {
	return nil, nil
}
func (f *fakeFactStore) ListByUser(ctx context.Context, agentID uuid.UUID, userKey string) ([]store.Fact, error) {
	return f.facts, nil
}
func (f *fakeFactStore) ListByTopic(ctx context.Context, agentID uuid.UUID, userKey string, topic store.FactTopic) ([]store.Fact, error) {
	return nil, nil
}
func (f *fakeFactStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ store.FactStore = (*fakeFactStore)(nil)

// fakeSharedStore returns a fixed visible-items list.
type fakeSharedStore struct {
	items []store.SharedKnowledge
}

func (f *fakeSharedStore) Create(ctx context.Context, item store.SharedKnowledge) (*store.SharedKnowledge, error) {
	return &item, nil
}
func (f *fakeSharedStore) ListVisible(ctx context.Context, tenantID, agentID uuid.UUID) ([]store.SharedKnowledge, error) {
	return f.items, nil
}
func (f *fakeSharedStore) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}
func (f *fakeSharedStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ store.SharedKnowledgeStore = (*fakeSharedStore)(nil)

// fakeEmbedder returns a deterministic unit vector per distinct text so
// cosine/distance comparisons in tests are reproducible without a live API.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Name() string { return "fake" }
func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 0, 1} // unrelated default
	}
	return out, nil
}

func TestDeriveMemoryKey(t *testing.T) {
	agentID := uuid.New()
	contactID := uuid.New()

	cases := []struct {
		name string
		in   MemoryKeyInput
		want string
	}{
		{
			name: "project id wins over isolation",
			in:   MemoryKeyInput{AgentID: agentID, Sender: "+1555", ProjectID: "proj1", Isolation: IsolationShared},
			want: "project_proj1:sender_+1555",
		},
		{
			name: "shared isolation",
			in:   MemoryKeyInput{AgentID: agentID, Isolation: IsolationShared},
			want: "agent_" + agentID.String() + ":shared",
		},
		{
			name: "channel isolated",
			in:   MemoryKeyInput{AgentID: agentID, Isolation: IsolationChannelIsolated, ChatOrSender: "chat-9"},
			want: "agent_" + agentID.String() + ":channel_chat-9",
		},
		{
			name: "isolated with resolved contact",
			in:   MemoryKeyInput{AgentID: agentID, Isolation: IsolationIsolated, ContactID: &contactID},
			want: "agent_" + agentID.String() + ":contact_" + contactID.String(),
		},
		{
			name: "isolated without contact falls back to sender",
			in:   MemoryKeyInput{AgentID: agentID, Isolation: IsolationIsolated, Sender: "+1555"},
			want: "agent_" + agentID.String() + ":sender_+1555",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveMemoryKey(tc.in)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAddMessageCapsWorkingRingAtConfiguredSize(t *testing.T) {
	rings := newFakeMemoryStore()
	agentID := uuid.New()
	am := NewAgentMemory(AgentMemoryConfig{AgentID: agentID, Isolation: IsolationShared, RingSize: 3}, rings, nil, nil, nil, nil, nil)

	for i := 0; i < 5; i++ {
		err := am.AddMessage(context.Background(), AddMessageInput{Sender: "+1555", Role: store.MemoryRoleUser, Content: "msg"})
		if err != nil {
			t.Fatal(err)
		}
	}

	ctx, err := am.GetContext(context.Background(), GetContextInput{Sender: "+1555"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Working) != 3 {
		t.Fatalf("expected ring capped at 3, got %d", len(ctx.Working))
	}
}

func TestGetContextFiltersEpisodicBySimilarityThreshold(t *testing.T) {
	rings := newFakeMemoryStore()
	vectors, err := NewVectorStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"I love espresso":    {1, 0, 0},
		"query about coffee": {1, 0, 0}, // identical direction -> distance 0 -> similarity 1
	}}

	agentID := uuid.New()
	am := NewAgentMemory(AgentMemoryConfig{
		AgentID: agentID, Isolation: IsolationShared, MinSimilarity: 0.9,
	}, rings, vectors, nil, nil, embedder, nil)

	ctx := context.Background()
	if err := am.AddMessage(ctx, AddMessageInput{Sender: "+1555", Role: store.MemoryRoleUser, Content: "I love espresso"}); err != nil {
		t.Fatal(err)
	}
	if err := am.AddMessage(ctx, AddMessageInput{Sender: "+1555", Role: store.MemoryRoleUser, Content: "unrelated filler"}); err != nil {
		t.Fatal(err)
	}

	res, err := am.GetContext(ctx, GetContextInput{Sender: "+1555", Query: "query about coffee"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Episodic) != 1 || res.Episodic[0].Text != "I love espresso" {
		t.Fatalf("expected only the closely-matching entry, got %+v", res.Episodic)
	}
}

func TestGetContextAssemblesFactsAndShared(t *testing.T) {
	rings := newFakeMemoryStore()
	facts := &fakeFactStore{facts: []store.Fact{{Topic: store.FactTopicPreferences, Key: "coffee", Value: "espresso"}}}
	shared := &fakeSharedStore{items: []store.SharedKnowledge{{Content: "office closes at 6pm"}}}

	am := NewAgentMemory(AgentMemoryConfig{AgentID: uuid.New(), Isolation: IsolationShared}, rings, nil, facts, shared, nil, nil)

	res, err := am.GetContext(context.Background(), GetContextInput{Sender: "+1555"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Facts[store.FactTopicPreferences]) != 1 {
		t.Fatalf("expected one preference fact, got %+v", res.Facts)
	}
	if len(res.Shared) != 1 || res.Shared[0].Content != "office closes at 6pm" {
		t.Fatalf("expected one shared item, got %+v", res.Shared)
	}
}

func TestFormatContextOmitsFactsWhenAdaptivePersonalityEnabled(t *testing.T) {
	rings := newFakeMemoryStore()
	am := NewAgentMemory(AgentMemoryConfig{AgentID: uuid.New(), Isolation: IsolationShared, AdaptivePersonalityEnabled: true}, rings, nil, nil, nil, nil, nil)

	c := &Context{Facts: map[store.FactTopic][]store.Fact{
		store.FactTopicPreferences: {{Key: "coffee", Value: "espresso"}},
	}}
	out := am.FormatContext(c, FormatOptions{})
	if strings.Contains(out, "What I know about this user") {
		t.Errorf("expected facts block to be omitted, got:\n%s", out)
	}
}

func TestFormatContextExcludesToolEntriesUnlessRequested(t *testing.T) {
	rings := newFakeMemoryStore()
	am := NewAgentMemory(AgentMemoryConfig{AgentID: uuid.New(), Isolation: IsolationShared}, rings, nil, nil, nil, nil, nil)

	c := &Context{Working: []store.MemoryEntry{
		{Role: store.MemoryRoleUser, Content: "what's the weather"},
		{Role: store.MemoryRoleTool, Content: "weather_api: 72F sunny"},
	}}

	withoutTool := am.FormatContext(c, FormatOptions{})
	if strings.Contains(withoutTool, "weather_api") {
		t.Errorf("expected tool entry excluded by default, got:\n%s", withoutTool)
	}

	withTool := am.FormatContext(c, FormatOptions{IncludeToolOutput: true})
	if !strings.Contains(withTool, "weather_api") {
		t.Errorf("expected tool entry included when requested, got:\n%s", withTool)
	}
}
