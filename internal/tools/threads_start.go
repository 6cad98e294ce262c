package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/agentbridge/internal/bus"
	"github.com/nextlevelbuilder/agentbridge/internal/threads"
)

// ============================================================
// threads_start
// ============================================================

// ThreadsStartTool lets an agent originate an outbound conversation thread
// (e.g. "follow up with this customer about their delivery") and have the
// engine in internal/threads own the rest of the exchange: safety gates,
// short-circuits, goal detection, and eventual closure.
type ThreadsStartTool struct {
	engine *threads.Engine
	msgBus *bus.MessageBus
}

func NewThreadsStartTool() *ThreadsStartTool { return &ThreadsStartTool{} }

func (t *ThreadsStartTool) SetEngine(e *threads.Engine)     { t.engine = e }
func (t *ThreadsStartTool) SetMessageBus(b *bus.MessageBus) { t.msgBus = b }

func (t *ThreadsStartTool) Name() string { return "threads_start" }

func (t *ThreadsStartTool) Description() string {
	return "Start a multi-turn outbound conversation thread with a recipient on a channel, pursuing a stated objective. Subsequent replies from that recipient are handled by the thread until it closes."
}

func (t *ThreadsStartTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"channel": map[string]interface{}{
				"type":        "string",
				"description": "Channel to send the opening message on (e.g. whatsapp, telegram)",
			},
			"recipient": map[string]interface{}{
				"type":        "string",
				"description": "Recipient chat/peer id on that channel",
			},
			"objective": map[string]interface{}{
				"type":        "string",
				"description": "What the thread is trying to accomplish (e.g. confirm delivery address, collect a reply to a reminder)",
			},
			"opening_message": map[string]interface{}{
				"type":        "string",
				"description": "The first message to send to the recipient",
			},
			"persona_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional persona/identity id the thread should present as",
			},
		},
		"required": []string{"channel", "recipient", "objective", "opening_message"},
	}
}

func (t *ThreadsStartTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.engine == nil {
		return ErrorResult("thread engine not available")
	}
	if t.msgBus == nil {
		return ErrorResult("message bus not available")
	}

	channel, _ := args["channel"].(string)
	recipient, _ := args["recipient"].(string)
	objective, _ := args["objective"].(string)
	opening, _ := args["opening_message"].(string)
	personaID, _ := args["persona_id"].(string)

	if channel == "" || recipient == "" || objective == "" || opening == "" {
		return ErrorResult("channel, recipient, objective, and opening_message are required")
	}

	agentID := resolveAgentIDString(ctx)
	if agentID == "" {
		agentID = ToolAgentKeyFromCtx(ctx)
	}
	if agentID == "" {
		return ErrorResult("no agent identity available to own this thread")
	}

	th, err := t.engine.StartThread(agentID, channel, recipient, objective, personaID)
	if err != nil {
		return ErrorResult(fmt.Sprintf("could not start thread: %v", err))
	}

	t.msgBus.PublishOutbound(bus.OutboundMessage{
		Channel: channel,
		ChatID:  recipient,
		Content: opening,
	})

	return SilentResult(fmt.Sprintf(`{"status":"thread_started","thread_id":"%s"}`, th.ID))
}
