// Package skills implements the skill manager: a registry of per-agent
// capability bundles that can transform inbound messages, expose extra tool
// schemas to the LLM, and run hooks after a response completes.
package skills

import (
	"context"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// ResultKind tags the shape of a skill's ProcessMessage outcome.
type ResultKind string

const (
	ResultKindPassthrough ResultKind = "passthrough" // no change, continue to the LLM
	ResultKindText        ResultKind = "text"        // replaced/augmented message text
	ResultKindSkipAI      ResultKind = "skip_ai"      // short-circuits the LLM entirely
)

// SkillResult is what ProcessMessage returns.
type SkillResult struct {
	Kind ResultKind

	// Text replaces the message text passed on to the LLM (ResultKindText),
	// e.g. an audio-transcription skill swapping a media reference for its
	// transcript.
	Text string

	// ContextAdd is extra context appended ahead of the LLM call without
	// altering the user-visible message text.
	ContextAdd string

	// ReplyText is sent directly back to the user when Kind is
	// ResultKindSkipAI (e.g. a pure command the skill handled itself).
	ReplyText string

	// MediaPaths are attached to the reply alongside ReplyText/the LLM output.
	MediaPaths []string
}

// IncomingMessage is the narrow view of an inbound message a skill needs.
type IncomingMessage struct {
	AgentID  string
	AgentKey string
	Sender   string
	Channel  string
	Text     string
}

// AgentRun is the narrow view of a completed agent invocation a
// post-response hook needs.
type AgentRun struct {
	AgentID  string
	AgentKey string
	Sender   string
	Input    string
	Output   string
}

// Skill is implemented by every declarative SKILL.md bundle and every
// built-in capability. The loader treats both alike when running the
// message-processing and post-response pipelines.
type Skill interface {
	Name() string
	Enabled(agentKey string) bool
	ProcessMessage(ctx context.Context, msg IncomingMessage) (*SkillResult, error)
	ToolDefinitions() []providers.ToolDefinition
	PostResponseHook(ctx context.Context, run AgentRun) error
}
