package threads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
	"github.com/nextlevelbuilder/agentbridge/internal/bus"
	"github.com/nextlevelbuilder/agentbridge/internal/sessions"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// Defaults for the per-turn safety gates (step 1) and the post-completion
// cooldown, overridable per Engine instance via Config.
const (
	DefaultAbsoluteMaxTurns           = 25
	DefaultRateCapPerMinute           = 15
	DefaultMaxDurationMinutes         = 30
	DefaultInactivityTimeoutMinutes   = 30
	DefaultPostCompletionBlockSeconds = 300
	DefaultLoopClosureBlockSeconds    = 1800
	// historyWindow is how many prior turns are folded into the LLM prompt.
	historyWindow = 10
)

// Config tunes the engine's safety-gate thresholds. Zero values fall back to
// the Default* constants.
type Config struct {
	AbsoluteMaxTurns           int
	RateCapPerMinute           int
	MaxDurationMinutes         int
	InactivityTimeoutMinutes   int
	PostCompletionBlockSeconds int
	LoopClosureBlockSeconds    int
}

func (c Config) withDefaults() Config {
	if c.AbsoluteMaxTurns <= 0 {
		c.AbsoluteMaxTurns = DefaultAbsoluteMaxTurns
	}
	if c.RateCapPerMinute <= 0 {
		c.RateCapPerMinute = DefaultRateCapPerMinute
	}
	if c.MaxDurationMinutes <= 0 {
		c.MaxDurationMinutes = DefaultMaxDurationMinutes
	}
	if c.InactivityTimeoutMinutes <= 0 {
		c.InactivityTimeoutMinutes = DefaultInactivityTimeoutMinutes
	}
	if c.PostCompletionBlockSeconds <= 0 {
		c.PostCompletionBlockSeconds = DefaultPostCompletionBlockSeconds
	}
	if c.LoopClosureBlockSeconds <= 0 {
		c.LoopClosureBlockSeconds = DefaultLoopClosureBlockSeconds
	}
	return c
}

// TurnResult is what ProcessInbound hands back to the router.
type TurnResult struct {
	ShouldReply  bool
	ReplyContent string
	Status       store.ThreadStatus
	GoalAchieved bool
}

// Engine runs the conversation-thread state machine. Turns for the same
// thread are serialized via a per-thread-id lock, mirroring the
// mutex-guarded session map in internal/sessions, generalized from a "one
// map, one global lock" session store to a lock keyed by thread id so
// concurrent threads never block each other.
type Engine struct {
	store  store.ThreadStore
	agents *agent.Router
	cfg    Config

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine builds an Engine backed by threadStore, dispatching LLM turns
// through agents.
func NewEngine(threadStore store.ThreadStore, agents *agent.Router, cfg Config) *Engine {
	return &Engine{
		store:  threadStore,
		agents: agents,
		cfg:    cfg.withDefaults(),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockFor(threadID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[threadID] = l
	}
	return l
}

// StartThread opens a new active thread pursuing objective with recipient,
// owned by agentID on channel.
func (e *Engine) StartThread(agentID, channel, recipient, objective, personaID string) (*store.ConversationThread, error) {
	t := &store.ConversationThread{
		AgentID:   agentID,
		Channel:   channel,
		Recipient: recipient,
		Objective: objective,
		MaxTurns:  e.cfg.AbsoluteMaxTurns,
		Status:    store.ThreadActive,
		PersonaID: personaID,
	}
	return e.store.Create(t)
}

// FindActiveThread looks up the most recently active thread for (agentID,
// channel) matching one of the normalized recipient candidates (step 4.6
// "broad OR-match over normalized recipient forms").
func (e *Engine) FindActiveThread(agentID, channel string, candidates []string) (*store.ConversationThread, error) {
	return e.store.FindActiveByRecipient(agentID, channel, candidates)
}

// PostCompletionBlocked reports whether recipient is within the
// post-completion cooldown window for agentID/channel (step 6 of §4.7).
func (e *Engine) PostCompletionBlocked(agentID, channel, recipient string) bool {
	closedAt, forced, ok := e.store.LastClosedAt(agentID, channel, recipient)
	if !ok {
		return false
	}
	window := time.Duration(e.cfg.PostCompletionBlockSeconds) * time.Second
	if forced {
		window = time.Duration(e.cfg.LoopClosureBlockSeconds) * time.Second
	}
	return time.Since(closedAt) < window
}

// ProcessInbound runs one turn of the state machine for thread against an
// inbound message: safety gates, dedup, pre-LLM short-circuits, the LLM
// turn, contamination and goal/stagnation checks, then commit. It
// refreshes thread from the store before acting, and persists the result
// before returning, serialized on thread.ID so concurrent inbound messages
// for the same recipient are never interleaved.
func (e *Engine) ProcessInbound(ctx context.Context, threadID string, msg bus.InboundMessage) (*TurnResult, error) {
	lock := e.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	t, err := e.store.Get(threadID)
	if err != nil {
		return nil, fmt.Errorf("threads: load %s: %w", threadID, err)
	}
	if t.Status != store.ThreadActive {
		return &TurnResult{Status: t.Status}, nil
	}

	now := time.Now()

	// --- 1. Safety gates ---
	if t.CurrentTurn >= e.cfg.AbsoluteMaxTurns {
		return e.close(t, store.ThreadCompleted, fmt.Sprintf("FORCED CLOSURE: Exceeded %d turns (loop prevention)", e.cfg.AbsoluteMaxTurns), false, true)
	}
	if e.recentTurnCount(t, now, time.Minute) >= e.cfg.RateCapPerMinute {
		return e.close(t, store.ThreadCompleted, "Rate limit exceeded", false, true)
	}
	if now.Sub(t.CreatedAt) >= time.Duration(e.cfg.MaxDurationMinutes)*time.Minute {
		return e.close(t, store.ThreadCompleted, fmt.Sprintf("Exceeded %d min duration", e.cfg.MaxDurationMinutes), false, true)
	}
	if now.Sub(t.LastActivity) >= time.Duration(e.cfg.InactivityTimeoutMinutes)*time.Minute {
		return e.close(t, store.ThreadTimeout, "", false, false)
	}
	if t.CurrentTurn > 3 && MatchesSessionEnd(msg.Content) {
		return e.close(t, store.ThreadGoalAchieved, "External bot closed the session", true, false)
	}

	// --- 2. Deduplication ---
	if msg.Metadata["message_id"] != "" {
		for _, h := range t.History {
			if h.MessageID == msg.Metadata["message_id"] {
				return &TurnResult{Status: t.Status}, nil
			}
		}
	}

	// --- 3. Append user message ---
	t.History = append(t.History, store.ThreadTurn{
		Role: "user", Content: msg.Content, Timestamp: now, MessageID: msg.Metadata["message_id"],
	})
	t.CurrentTurn++
	t.LastActivity = now

	// --- 4. Pre-LLM short-circuits, 5. LLM turn ---
	// A short-circuit supplies reply without calling the LLM, but still flows
	// through contamination/goal/stagnation below: a status-ack
	// short-circuit reply can still close the thread via goal detection on
	// the matched inbound message.
	reply, shortCircuited := e.preLLMShortCircuit(t, msg.Content)
	if !shortCircuited {
		var err error
		reply, err = e.callLLM(ctx, t, msg)
		if err != nil {
			return nil, fmt.Errorf("threads: llm turn for %s: %w", threadID, err)
		}
	}

	// --- 6. Contamination check ---
	detector := agent.ContaminationDetectorFor(t.AgentID, nil)
	if pattern := detector.Check(reply); pattern != "" {
		return e.close(t, store.ThreadCompleted, "CONTAMINATION DETECTED: "+pattern, false, false)
	}

	// --- 7. Goal detection ---
	if t.CurrentTurn >= 2 {
		if achieved, summary := DetectGoal(msg.Content, reply); achieved {
			return e.closeWithReply(t, store.ThreadGoalAchieved, summary, true, false, reply)
		}
	}

	// --- 8. Stagnation detector ---
	if t.CurrentTurn >= 3 {
		if reason, stagnant := e.detectStagnation(t); stagnant {
			t.History = append(t.History, store.ThreadTurn{Role: "agent", Content: reply, Timestamp: now})
			closed, err := e.close(t, store.ThreadCompleted, reason, false, true)
			if err != nil {
				return nil, err
			}
			closed.ReplyContent = "desculpe, encerrando esta conversa"
			closed.ShouldReply = true
			return closed, nil
		}
	}

	// --- 9. Commit & return ---
	return e.commitReply(t, reply)
}

// recentTurnCount counts history entries within window of now, implementing
// the rate-cap safety gate (step 1b).
func (e *Engine) recentTurnCount(t *store.ConversationThread, now time.Time, window time.Duration) int {
	n := 0
	for _, h := range t.History {
		if now.Sub(h.Timestamp) <= window {
			n++
		}
	}
	return n
}

// preLLMShortCircuit implements step 4: mid-session menu prompting,
// interactive-menu selection, and status acknowledgment, in that order.
func (e *Engine) preLLMShortCircuit(t *store.ConversationThread, body string) (string, bool) {
	if t.CurrentTurn <= 2 && t.ResetAttempts < 2 && MatchesMidSession(body) {
		t.ResetAttempts++
		if t.ResetAttempts == 1 {
			return "menu", true
		}
		return "0", true
	}

	if options, ok := ParseInteractiveMenu(body); ok {
		sig := MenuSignature(options)
		if sig == t.LastMenuSig && t.LastMenuReply != "" {
			return t.LastMenuReply, true
		}
		choice := ChooseMenuOption(options, t.Objective)
		t.LastMenuSig = sig
		t.LastMenuReply = choice
		return choice, true
	}

	if MatchesStatusAck(body) {
		return "Perfeito, obrigado!", true
	}

	return "", false
}

// callLLM builds the step-5 prompt (identity guardrails, objective, turn
// counter, last historyWindow turns) and dispatches it to the owning agent,
// reusing the same agent.Router/RunRequest path the router uses for normal
// chat, scoped to a thread-private session key so thread turns never mix
// into the recipient's regular conversation history.
func (e *Engine) callLLM(ctx context.Context, t *store.ConversationThread, msg bus.InboundMessage) (string, error) {
	a, err := e.agents.Get(t.AgentID)
	if err != nil {
		return "", fmt.Errorf("agent %s not found: %w", t.AgentID, err)
	}

	var sb strings.Builder
	sb.WriteString("You initiated this conversation to accomplish an objective; you are not a customer-service agent receiving a ticket. ")
	sb.WriteString("Never prefix your reply with \"@name:\" and never impersonate the other party.\n")
	sb.WriteString("When the inbound message is an interactive menu/list, choose the option that best matches the objective.\n")
	fmt.Fprintf(&sb, "Objective: %s\n", t.Objective)
	fmt.Fprintf(&sb, "Turn %d of %d.\n", t.CurrentTurn, t.MaxTurns)

	history := t.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, h := range history {
		role := "User"
		if h.Role == "agent" {
			role = "Agent"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, h.Content)
	}

	sessionKey := sessions.SessionKey(t.AgentID, "thread:"+t.ID)
	result, err := a.Run(ctx, agent.RunRequest{
		SessionKey:        sessionKey,
		Message:           msg.Content,
		Channel:           t.Channel,
		ChatID:            t.Recipient,
		PeerKind:          "direct",
		RunID:             fmt.Sprintf("thread-%s-turn-%d", t.ID, t.CurrentTurn),
		Stream:            false,
		ExtraSystemPrompt: sb.String(),
	})
	if err != nil {
		return "", err
	}
	return agent.SanitizeAssistantContent(result.Content), nil
}

// detectStagnation implements step 8: repeated exchanges indicate the
// external counterpart (or our own agent) is looping without progress.
func (e *Engine) detectStagnation(t *store.ConversationThread) (string, bool) {
	users := lastByRole(t.History, "user", 2)
	if len(users) == 2 && users[0] == users[1] {
		return "Stagnant conversation: repeated user message", true
	}

	agents := lastByRole(t.History, "agent", 3)
	if len(agents) == 3 && agents[0] == agents[1] && agents[1] == agents[2] {
		return "Stagnant conversation: repeated agent message", true
	}
	if len(agents) == 3 && prefix30(agents[0]) == prefix30(agents[1]) && prefix30(agents[1]) == prefix30(agents[2]) {
		return "Stagnant conversation: repeated agent message prefix", true
	}

	if loopPhraseRecurCount(t.History) >= 2 {
		return "Stagnant conversation: recurring loop phrase", true
	}

	if abababPattern(t.History) {
		return "Stagnant conversation: A/B exchange loop", true
	}

	return "", false
}

func lastByRole(history []store.ThreadTurn, role string, n int) []string {
	var out []string
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if history[i].Role == role {
			out = append([]string{history[i].Content}, out...)
		}
	}
	return out
}

func prefix30(s string) string {
	if len(s) <= 30 {
		return s
	}
	return s[:30]
}

// loopPhraseRecurCount counts how many times the same external-bot message
// has recurred across the whole history.
func loopPhraseRecurCount(history []store.ThreadTurn) int {
	seen := make(map[string]int)
	max := 0
	for _, h := range history {
		if h.Role != "user" {
			continue
		}
		seen[h.Content]++
		if seen[h.Content] > max {
			max = seen[h.Content]
		}
	}
	return max
}

// abababPattern detects the last six turns forming an A(user)->B(agent)
// exchange that repeats identically three times in a row.
func abababPattern(history []store.ThreadTurn) bool {
	if len(history) < 6 {
		return false
	}
	last6 := history[len(history)-6:]
	for i, h := range last6 {
		if i%2 == 0 && h.Role != "user" {
			return false
		}
		if i%2 == 1 && h.Role != "agent" {
			return false
		}
	}
	a1, b1 := last6[0].Content, last6[1].Content
	a2, b2 := last6[2].Content, last6[3].Content
	a3, b3 := last6[4].Content, last6[5].Content
	return a1 == a2 && a2 == a3 && b1 == b2 && b2 == b3
}

func (e *Engine) commitReply(t *store.ConversationThread, reply string) (*TurnResult, error) {
	t.History = append(t.History, store.ThreadTurn{Role: "agent", Content: reply, Timestamp: time.Now()})
	t.LastActivity = time.Now()
	if err := e.store.Update(t); err != nil {
		return nil, fmt.Errorf("threads: commit %s: %w", t.ID, err)
	}
	return &TurnResult{ShouldReply: true, ReplyContent: reply, Status: t.Status}, nil
}

// close force-terminates t with status/summary, persists it, and returns a
// TurnResult carrying no reply (used by the safety gates, contamination
// block, and timeout, which never emit text to the recipient).
func (e *Engine) close(t *store.ConversationThread, status store.ThreadStatus, summary string, goalAchieved, forced bool) (*TurnResult, error) {
	now := time.Now()
	t.Status = status
	t.GoalSummary = summary
	t.CompletedAt = &now
	t.ForcedClosure = forced
	if err := e.store.Update(t); err != nil {
		return nil, fmt.Errorf("threads: close %s: %w", t.ID, err)
	}
	slog.Info("thread closed", "thread", t.ID, "status", status, "summary", summary, "forced", forced)
	return &TurnResult{Status: status, GoalAchieved: goalAchieved}, nil
}

// closeWithReply is close, but also emits reply to the recipient before the
// thread is marked done (used by goal detection, which closes on a reply
// that itself satisfied the objective).
func (e *Engine) closeWithReply(t *store.ConversationThread, status store.ThreadStatus, summary string, goalAchieved, forced bool, reply string) (*TurnResult, error) {
	t.History = append(t.History, store.ThreadTurn{Role: "agent", Content: reply, Timestamp: time.Now()})
	res, err := e.close(t, status, summary, goalAchieved, forced)
	if err != nil {
		return nil, err
	}
	res.ShouldReply = true
	res.ReplyContent = reply
	return res, nil
}
