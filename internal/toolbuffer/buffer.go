// Package toolbuffer implements the tool-output buffer: a bounded
// per-(agent, sender) ring of recent tool executions, so a user can refer
// back to "the nmap result" turns later without the full output ever
// entering the LLM context by default.
package toolbuffer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded tool execution.
type Entry struct {
	ExecutionID string
	Tool        string
	Command     string
	Output      string
	CreatedAt   time.Time
}

// ringSize bounds the buffer to the last K tool executions, K ~10.
const ringSize = 10

// ttl bounds how long an entry survives even if the ring never fills for a
// quiet (agent, sender) pair, so memory doesn't grow unbounded for
// long-lived but infrequently-used conversations.
const ttl = 2 * time.Hour

type ring struct {
	mu      sync.Mutex
	entries []Entry // oldest first, capped at ringSize
}

// Buffer holds one ring per (agent, sender) pair.
type Buffer struct {
	mu    sync.RWMutex
	rings map[string]*ring
}

func New() *Buffer {
	return &Buffer{rings: make(map[string]*ring)}
}

func key(agentID, sender string) string {
	return agentID + "\x00" + sender
}

func (b *Buffer) ring(agentID, sender string) *ring {
	k := key(agentID, sender)
	b.mu.RLock()
	r, ok := b.rings[k]
	b.mu.RUnlock()
	if ok {
		return r
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.rings[k]; ok {
		return r
	}
	r = &ring{}
	b.rings[k] = r
	return r
}

// Add records one tool execution and returns its execution id.
func (b *Buffer) Add(agentID, sender, tool, command, output string) string {
	r := b.ring(agentID, sender)
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.Must(uuid.NewV7()).String()
	r.entries = append(r.entries, Entry{
		ExecutionID: id,
		Tool:        tool,
		Command:     command,
		Output:      output,
		CreatedAt:   time.Now(),
	})
	if len(r.entries) > ringSize {
		r.entries = r.entries[len(r.entries)-ringSize:]
	}
	return id
}

// GetFull returns the verbatim output for one execution id, searching
// across every (agent, sender) ring (execution ids are process-unique).
func (b *Buffer) GetFull(executionID string) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.rings {
		r.mu.Lock()
		for _, e := range r.entries {
			if e.ExecutionID == executionID {
				r.mu.Unlock()
				return e, true
			}
		}
		r.mu.Unlock()
	}
	return Entry{}, false
}

// LightweightContext returns a compact "tools available for recall"
// summary, cheap enough to always inject into the prompt prefix.
func (b *Buffer) LightweightContext(agentID, sender string) string {
	r := b.ring(agentID, sender)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return ""
	}
	var lines []string
	for _, e := range r.entries {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s (id=%s)", e.CreatedAt.Format(time.Kitchen), e.Tool, truncate(e.Command, 80), e.ExecutionID))
	}
	return "Recent tool outputs available for recall:\n" + strings.Join(lines, "\n")
}

// recallKeywords are natural-language cues that the user is asking about a
// past tool result rather than starting something new.
var recallKeywords = []string{"result", "output", "scan", "show me", "that command", "the report", "what you found"}

// InjectFullContext returns the full text of buffered entries whose tool
// name or command the query references, either via an explicit execution id
// directive ("#<id>") or one of recallKeywords. When a recall keyword is
// present but no entry's tool or command is named, the most recent entry is
// returned. Returns "" for an unknown id or a query with no recall keyword,
// so callers can skip the injection entirely.
func (b *Buffer) InjectFullContext(agentID, sender, query string) string {
	r := b.ring(agentID, sender)
	r.mu.Lock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	if len(entries) == 0 {
		return ""
	}

	lowerQuery := strings.ToLower(query)
	if strings.HasPrefix(strings.TrimSpace(query), "#") {
		id := strings.TrimPrefix(strings.TrimSpace(query), "#")
		for _, e := range entries {
			if e.ExecutionID == id {
				return formatEntry(e)
			}
		}
		return ""
	}

	wantsRecall := false
	for _, kw := range recallKeywords {
		if strings.Contains(lowerQuery, kw) {
			wantsRecall = true
			break
		}
	}
	if !wantsRecall {
		return ""
	}

	var matched []Entry
	for _, e := range entries {
		if strings.Contains(lowerQuery, strings.ToLower(e.Tool)) || strings.Contains(lowerQuery, strings.ToLower(e.Command)) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		// No specific tool named but recall was requested — surface the
		// most recent entry, matching the "explain the nmap result" case
		// where the user doesn't repeat the tool name verbatim.
		matched = entries[len(entries)-1:]
	}

	var out []string
	for _, e := range matched {
		out = append(out, formatEntry(e))
	}
	return strings.Join(out, "\n\n")
}

func formatEntry(e Entry) string {
	return fmt.Sprintf("[%s output, id=%s]\n%s", e.Tool, e.ExecutionID, e.Output)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Sweep removes entries older than ttl across all rings and drops rings
// left empty afterward. Intended to run on a periodic background ticker.
func (b *Buffer) Sweep() {
	cutoff := time.Now().Add(-ttl)

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, r := range b.rings {
		r.mu.Lock()
		kept := r.entries[:0]
		for _, e := range r.entries {
			if e.CreatedAt.After(cutoff) {
				kept = append(kept, e)
			}
		}
		r.entries = kept
		empty := len(r.entries) == 0
		r.mu.Unlock()
		if empty {
			delete(b.rings, k)
		}
	}
}
