package store

import (
	"context"

	"github.com/google/uuid"
)

// Request-scoped identifiers threaded through a run so storage-layer code
// (memory, skills, per-user workspace resolution) can scope reads/writes
// without every function taking four extra parameters.

type storeCtxKey string

const (
	ctxAgentID   storeCtxKey = "store_agent_id"
	ctxUserID    storeCtxKey = "store_user_id"
	ctxAgentType storeCtxKey = "store_agent_type"
	ctxSenderID  storeCtxKey = "store_sender_id"
)

func WithAgentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAgentID, id)
}

func AgentIDFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxAgentID).(uuid.UUID)
	return id
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func UserIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

func WithAgentType(ctx context.Context, agentType string) context.Context {
	return context.WithValue(ctx, ctxAgentType, agentType)
}

func AgentTypeFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxAgentType).(string)
	return v
}

// WithSenderID records the original individual sender in a group chat, kept
// distinct from UserID (which may identify the group) for permission checks.
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, ctxSenderID, senderID)
}

func SenderIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxSenderID).(string)
	return v
}
