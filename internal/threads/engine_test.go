package threads

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
	"github.com/nextlevelbuilder/agentbridge/internal/bus"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// memThreadStore is a minimal in-memory store.ThreadStore for engine tests.
type memThreadStore struct {
	mu      sync.Mutex
	threads map[string]*store.ConversationThread
	seq     int
}

func newMemThreadStore() *memThreadStore {
	return &memThreadStore{threads: make(map[string]*store.ConversationThread)}
}

func (m *memThreadStore) Create(t *store.ConversationThread) (*store.ConversationThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.ID = fmt.Sprintf("t%d", m.seq)
	if t.Status == "" {
		t.Status = store.ThreadActive
	}
	t.CreatedAt = time.Now()
	t.LastActivity = t.CreatedAt
	m.threads[t.ID] = t
	return t, nil
}

func (m *memThreadStore) Get(id string) (*store.ConversationThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return nil, fmt.Errorf("not found: %s", id)
	}
	return t, nil
}

func (m *memThreadStore) Update(t *store.ConversationThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[t.ID] = t
	return nil
}

func (m *memThreadStore) FindActiveByRecipient(agentID, channel string, candidates []string) (*store.ConversationThread, error) {
	return nil, nil
}

func (m *memThreadStore) LastClosedAt(agentID, channel, recipient string) (time.Time, bool, bool) {
	return time.Time{}, false, false
}

// stubAgent is a fixed-reply agent.Agent for exercising the LLM-turn step
// without a real provider.
type stubAgent struct {
	reply string
}

func (s *stubAgent) Run(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
	return &agent.RunResult{Content: s.reply, RunID: req.RunID}, nil
}

func newTestEngine(reply string) (*Engine, *store.ConversationThread) {
	ms := newMemThreadStore()
	router := agent.NewRouter()
	router.Set("agent-1", &stubAgent{reply: reply})
	e := NewEngine(ms, router, Config{})
	t, _ := e.StartThread("agent-1", "whatsapp", "5511999999999", "obter status rastreio 1234567890123", "")
	return e, t
}

func TestProcessInboundCommitsLLMReply(t *testing.T) {
	e, th := newTestEngine("Vou verificar o status para você.")
	result, err := e.ProcessInbound(context.Background(), th.ID, bus.InboundMessage{Content: "oi, tudo bem?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ShouldReply || result.ReplyContent == "" {
		t.Fatalf("expected a reply, got %+v", result)
	}
}

func TestProcessInboundStatusAckShortCircuitsLLM(t *testing.T) {
	e, th := newTestEngine("should not be used")
	// Goal detection only applies from turn >= 2; simulate an already-ongoing
	// thread so this turn's increment reaches turn 2.
	th.CurrentTurn = 1
	result, err := e.ProcessInbound(context.Background(), th.ID, bus.InboundMessage{
		Content: "Seu pedido está em trânsito, previsão para 2026-02-14.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReplyContent != "Perfeito, obrigado!" {
		t.Errorf("expected status-ack short-circuit reply, got %q", result.ReplyContent)
	}
	if !result.GoalAchieved {
		t.Error("expected status ack to also satisfy goal detection and close the thread")
	}
}

func TestProcessInboundDeduplicatesByMessageID(t *testing.T) {
	e, th := newTestEngine("reply text")
	msg := bus.InboundMessage{Content: "hello", Metadata: map[string]string{"message_id": "m1"}}

	first, err := e.ProcessInbound(context.Background(), th.ID, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	turnAfterFirst := first.Status

	second, err := e.ProcessInbound(context.Background(), th.ID, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ShouldReply {
		t.Error("expected duplicate message id to be dropped, not replied to")
	}
	if second.Status != turnAfterFirst {
		t.Error("expected status to be unchanged by a duplicate observation")
	}
}

func TestProcessInboundForceClosesAtMaxTurns(t *testing.T) {
	ms := newMemThreadStore()
	router := agent.NewRouter()
	router.Set("agent-1", &stubAgent{reply: "ok"})
	e := NewEngine(ms, router, Config{AbsoluteMaxTurns: 1})
	th, _ := e.StartThread("agent-1", "whatsapp", "5511999999999", "obj", "")
	th.CurrentTurn = 1
	ms.Update(th)

	result, err := e.ProcessInbound(context.Background(), th.ID, bus.InboundMessage{Content: "still going"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != store.ThreadCompleted {
		t.Errorf("expected forced closure at max turns, got status=%s", result.Status)
	}
}

func TestPostCompletionBlockedFalseBeforeAnyClosure(t *testing.T) {
	ms := newMemThreadStore()
	router := agent.NewRouter()
	e := NewEngine(ms, router, Config{PostCompletionBlockSeconds: 1, LoopClosureBlockSeconds: 3600})

	// No thread has closed yet.
	if e.PostCompletionBlocked("agent-1", "whatsapp", "5511999999999") {
		t.Error("expected no block before any thread has closed")
	}
}
