package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
	"github.com/nextlevelbuilder/agentbridge/internal/scheduler"
	"github.com/nextlevelbuilder/agentbridge/pkg/protocol"
)

// ChatParams is the decoded params payload for a chat.send request.
type ChatParams struct {
	Message    string `json:"message"`
	AgentID    string `json:"agentId"`
	SessionKey string `json:"sessionKey"`
	Stream     bool   `json:"stream"`
}

// ChatHandlers wires chat.send/chat.abort onto a MethodRouter. It schedules
// each request through the "main" lane so playground/CLI traffic shares the
// same per-session concurrency and cancellation machinery as channel-driven
// messages. chat.send replies only with the final result; chunk/thinking
// events emitted during the run reach clients through the server's event
// broadcast, which goes to every connected client.
type ChatHandlers struct {
	sched *scheduler.Scheduler
}

// NewChatHandlers creates the chat.send/chat.abort handler set.
func NewChatHandlers(sched *scheduler.Scheduler) *ChatHandlers {
	return &ChatHandlers{sched: sched}
}

// Register installs chat.send and chat.abort on router.
func (h *ChatHandlers) Register(router *MethodRouter) {
	router.Register(protocol.MethodChatSend, h.handleSend)
	router.Register(protocol.MethodChatAbort, h.handleAbort)
}

func (h *ChatHandlers) handleSend(ctx context.Context, client *Client, req *protocol.RequestFrame) *protocol.ResponseFrame {
	var params ChatParams
	if err := decodeParams(req.Params, &params); err != nil {
		return protocol.NewError(req.ID, 400, "invalid params: "+err.Error())
	}
	if params.Message == "" {
		return protocol.NewError(req.ID, 400, "message is required")
	}
	if params.SessionKey == "" {
		return protocol.NewError(req.ID, 400, "sessionKey is required")
	}

	runID := fmt.Sprintf("ws-%s", uuid.NewString()[:8])

	runReq := agent.RunRequest{
		SessionKey: params.SessionKey,
		Message:    params.Message,
		Channel:    "playground",
		ChatID:     client.id,
		PeerKind:   "direct",
		UserID:     client.id,
		RunID:      runID,
		Stream:     params.Stream,
	}

	outCh := h.sched.Schedule(ctx, scheduler.LaneMain, runReq)

	select {
	case outcome := <-outCh:
		if outcome.Err != nil {
			return protocol.NewError(req.ID, 500, outcome.Err.Error())
		}
		return protocol.NewResult(req.ID, map[string]interface{}{
			"content":    outcome.Result.Content,
			"runId":      outcome.Result.RunID,
			"iterations": outcome.Result.Iterations,
		})
	case <-ctx.Done():
		return protocol.NewError(req.ID, 499, "request cancelled")
	}
}

// ChatAbortParams is the decoded params payload for a chat.abort request.
type ChatAbortParams struct {
	SessionKey string `json:"sessionKey"`
	All        bool   `json:"all"`
}

func (h *ChatHandlers) handleAbort(_ context.Context, _ *Client, req *protocol.RequestFrame) *protocol.ResponseFrame {
	var params ChatAbortParams
	if err := decodeParams(req.Params, &params); err != nil {
		return protocol.NewError(req.ID, 400, "invalid params: "+err.Error())
	}
	if params.SessionKey == "" {
		return protocol.NewError(req.ID, 400, "sessionKey is required")
	}

	var cancelled bool
	if params.All {
		cancelled = h.sched.CancelSession(params.SessionKey)
	} else {
		cancelled = h.sched.CancelOneSession(params.SessionKey)
	}
	return protocol.NewResult(req.ID, map[string]interface{}{"cancelled": cancelled})
}

// decodeParams re-marshals a generic params value (map[string]interface{},
// json.RawMessage, or already-typed struct) into dst.
func decodeParams(params interface{}, dst interface{}) error {
	switch v := params.(type) {
	case json.RawMessage:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case nil:
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
