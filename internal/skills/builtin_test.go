package skills

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

type fakeSharedKnowledgeStore struct {
	created []store.SharedKnowledge
}

func (f *fakeSharedKnowledgeStore) Create(ctx context.Context, item store.SharedKnowledge) (*store.SharedKnowledge, error) {
	f.created = append(f.created, item)
	return &item, nil
}

func (f *fakeSharedKnowledgeStore) ListVisible(ctx context.Context, tenantID, agentID uuid.UUID) ([]store.SharedKnowledge, error) {
	return f.created, nil
}

func (f *fakeSharedKnowledgeStore) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeSharedKnowledgeStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ store.SharedKnowledgeStore = (*fakeSharedKnowledgeStore)(nil)

func TestKnowledgeSharingSkillExtractsDirective(t *testing.T) {
	tenantID := uuid.New()
	agentID := uuid.New()
	fake := &fakeSharedKnowledgeStore{}
	s := NewKnowledgeSharingSkill(tenantID, fake)

	output := `Sure, here's the answer.

[SHARE_KNOWLEDGE topic="billing"]Invoices are sent on the 1st of each month.[/SHARE_KNOWLEDGE]`

	err := s.PostResponseHook(context.Background(), AgentRun{AgentID: agentID.String(), Output: output})
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.created) != 1 {
		t.Fatalf("expected 1 shared item, got %d", len(fake.created))
	}
	item := fake.created[0]
	if item.Topic != "billing" || item.AccessLevel != store.AccessLevelPublic {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Content != "Invoices are sent on the 1st of each month." {
		t.Errorf("unexpected content: %q", item.Content)
	}
}

func TestKnowledgeSharingSkillNoDirectiveNoOp(t *testing.T) {
	fake := &fakeSharedKnowledgeStore{}
	s := NewKnowledgeSharingSkill(uuid.New(), fake)

	err := s.PostResponseHook(context.Background(), AgentRun{AgentID: uuid.New().String(), Output: "plain reply"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.created) != 0 {
		t.Errorf("expected no shared items, got %d", len(fake.created))
	}
}
