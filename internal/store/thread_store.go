package store

import "time"

// ThreadStatus is the lifecycle state of a ConversationThread.
type ThreadStatus string

const (
	ThreadActive       ThreadStatus = "active"
	ThreadCompleted    ThreadStatus = "completed"
	ThreadGoalAchieved ThreadStatus = "goal_achieved"
	ThreadTimeout      ThreadStatus = "timeout"
)

// ThreadTurn is one entry in a thread's conversation history.
type ThreadTurn struct {
	Role      string    `json:"role"` // "user" or "agent"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id,omitempty"`
}

// ConversationThread is one outbound-initiated dialogue: the agent reached
// out to recipient pursuing objective, and this row tracks the back-and-forth
// until a goal, a timeout, or a forced closure ends it.
type ConversationThread struct {
	ID        string `json:"id"`
	AgentID   string `json:"agent_id"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"` // normalized chat/peer identifier the thread replies on

	Objective   string       `json:"objective"`
	CurrentTurn int          `json:"current_turn"`
	MaxTurns    int          `json:"max_turns"`
	Status      ThreadStatus `json:"status"`

	History     []ThreadTurn `json:"history"`
	GoalSummary string       `json:"goal_summary,omitempty"`
	PersonaID   string       `json:"persona_id,omitempty"`

	// Context blob: free-form state the short-circuit rules need to remember
	// across turns (reset-attempt counts, last menu shown, its chosen answer).
	ResetAttempts int               `json:"reset_attempts,omitempty"`
	LastMenuSig   string            `json:"last_menu_signature,omitempty"`
	LastMenuReply string            `json:"last_menu_reply,omitempty"`
	Context       map[string]string `json:"context,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// ForcedClosure marks a loop-prevention close (max turns, rate cap, duration
	// cap, stagnation) so the cooldown policy can apply the longer window.
	ForcedClosure bool `json:"forced_closure,omitempty"`
}

// ThreadStore persists ConversationThread rows and answers the lookup that
// routes an inbound message to its active thread, if any.
type ThreadStore interface {
	// Create inserts a new active thread and returns it with an assigned ID.
	Create(t *ConversationThread) (*ConversationThread, error)
	// Get returns the thread by id, refreshed from the store (not a cached copy).
	Get(id string) (*ConversationThread, error)
	// Update persists the full thread row (history, status, counters).
	Update(t *ConversationThread) error

	// FindActiveByRecipient returns the most recently active thread for
	// (agentID, channel) whose recipient matches any of the normalized
	// candidate forms, or nil if none is active.
	FindActiveByRecipient(agentID, channel string, candidates []string) (*ConversationThread, error)

	// LastClosedAt returns when the most recent thread for (agentID, channel,
	// recipient) closed, and whether that close was forced (loop prevention),
	// so the router can apply the post-completion cooldown. ok is false if no
	// thread has ever closed for this recipient.
	LastClosedAt(agentID, channel, recipient string) (closedAt time.Time, forced bool, ok bool)
}
