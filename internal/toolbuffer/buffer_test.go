package toolbuffer

import (
	"strings"
	"testing"
)

func TestAddAndGetFull(t *testing.T) {
	b := New()
	id := b.Add("agent-1", "alice", "nmap", "nmap -sV 10.0.0.1", "22/tcp open ssh")

	entry, ok := b.GetFull(id)
	if !ok {
		t.Fatalf("expected entry for id %s", id)
	}
	if entry.Output != "22/tcp open ssh" {
		t.Errorf("unexpected output: %q", entry.Output)
	}
}

func TestRingBoundedAtK(t *testing.T) {
	b := New()
	var lastID string
	for i := 0; i < ringSize+5; i++ {
		lastID = b.Add("agent-1", "alice", "tool", "cmd", "out")
	}

	r := b.ring("agent-1", "alice")
	r.mu.Lock()
	n := len(r.entries)
	got := r.entries[len(r.entries)-1].ExecutionID
	r.mu.Unlock()

	if n != ringSize {
		t.Errorf("expected ring capped at %d entries, got %d", ringSize, n)
	}
	if got != lastID {
		t.Errorf("expected most recent entry to be the last one added")
	}
}

func TestLightweightContextEmpty(t *testing.T) {
	b := New()
	if got := b.LightweightContext("agent-1", "alice"); got != "" {
		t.Errorf("expected empty lightweight context for unused pair, got %q", got)
	}
}

func TestInjectFullContextByKeyword(t *testing.T) {
	b := New()
	b.Add("agent-1", "alice", "nmap", "nmap -sV 10.0.0.1", "22/tcp open ssh")

	got := b.InjectFullContext("agent-1", "alice", "can you explain the nmap result?")
	if !strings.Contains(got, "22/tcp open ssh") {
		t.Errorf("expected full output injected, got %q", got)
	}
}

func TestInjectFullContextNoRecallIntent(t *testing.T) {
	b := New()
	b.Add("agent-1", "alice", "nmap", "nmap -sV 10.0.0.1", "22/tcp open ssh")

	got := b.InjectFullContext("agent-1", "alice", "what's the weather like today?")
	if got != "" {
		t.Errorf("expected no injection without a recall cue, got %q", got)
	}
}

func TestInjectFullContextByExplicitID(t *testing.T) {
	b := New()
	id := b.Add("agent-1", "alice", "nmap", "nmap -sV 10.0.0.1", "22/tcp open ssh")

	got := b.InjectFullContext("agent-1", "alice", "#"+id)
	if !strings.Contains(got, "22/tcp open ssh") {
		t.Errorf("expected full output for explicit id reference, got %q", got)
	}
}

func TestSweepRemovesExpiredRings(t *testing.T) {
	b := New()
	b.Add("agent-1", "alice", "tool", "cmd", "out")

	r := b.ring("agent-1", "alice")
	r.mu.Lock()
	for i := range r.entries {
		r.entries[i].CreatedAt = r.entries[i].CreatedAt.Add(-3 * ttl)
	}
	r.mu.Unlock()

	b.Sweep()

	b.mu.RLock()
	_, exists := b.rings[key("agent-1", "alice")]
	b.mu.RUnlock()
	if exists {
		t.Errorf("expected ring to be removed after sweep past ttl")
	}
}
