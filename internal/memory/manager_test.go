package memory

import (
	"testing"

	"github.com/google/uuid"
)

func TestForAgentCachesFacadePerAgent(t *testing.T) {
	mm := NewMemoryManager(newFakeMemoryStore(), nil, nil, nil, nil)
	agentID := uuid.New()

	first := mm.ForAgent(AgentMemoryConfig{AgentID: agentID, Isolation: IsolationShared}, nil)
	second := mm.ForAgent(AgentMemoryConfig{AgentID: agentID, Isolation: IsolationShared}, nil)
	if first != second {
		t.Error("expected ForAgent to return the cached façade on repeat calls")
	}

	other := mm.ForAgent(AgentMemoryConfig{AgentID: uuid.New(), Isolation: IsolationShared}, nil)
	if other == first {
		t.Error("expected a distinct façade for a distinct agent")
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	mm := NewMemoryManager(newFakeMemoryStore(), nil, nil, nil, nil)
	agentID := uuid.New()

	first := mm.ForAgent(AgentMemoryConfig{AgentID: agentID, Isolation: IsolationShared}, nil)
	mm.Invalidate(agentID)
	second := mm.ForAgent(AgentMemoryConfig{AgentID: agentID, Isolation: IsolationShared}, nil)
	if first == second {
		t.Error("expected Invalidate to force a fresh façade on next ForAgent call")
	}
}
