package store

import "time"

// PairingRequest is a pending or resolved approval request for a new
// (channel, chatID) peer that isn't yet allowed to talk to an agent.
type PairingRequest struct {
	Code      string    `json:"code"`
	UserID    string    `json:"user_id"`
	Channel   string    `json:"channel"`
	ChatID    string    `json:"chat_id"`
	AgentID   string    `json:"agent_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// PairingStore tracks pending/approved pairing requests so unknown peers
// must be explicitly approved before an agent will respond to them.
type PairingStore interface {
	// RequestPairing records a pending request for userID on channel/chatID
	// and returns a short human-readable code to show the owner.
	RequestPairing(userID, channel, chatID, agentID string) (code string, err error)
	// IsPaired reports whether userID on channel/chatID has been approved.
	IsPaired(userID, channel, chatID string) bool
	// Approve marks a pending request (matched by code) as approved.
	Approve(code string) (*PairingRequest, error)
	// List returns all known pairing requests, most recent first.
	List() []PairingRequest
}
