package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SpanType classifies a trace span by what it represents.
type SpanType string

const (
	SpanTypeAgent    SpanType = "agent"
	SpanTypeLLMCall  SpanType = "llm_call"
	SpanTypeToolCall SpanType = "tool_call"
)

// SpanStatus is the terminal outcome of a span.
type SpanStatus string

const (
	SpanStatusCompleted SpanStatus = "completed"
	SpanStatusError     SpanStatus = "error"
)

// SpanLevel is a coarse severity/verbosity bucket, mirrored from OTel's
// DEFAULT/DEBUG/WARNING/ERROR levels.
type SpanLevel string

const (
	SpanLevelDefault SpanLevel = "DEFAULT"
	SpanLevelDebug   SpanLevel = "DEBUG"
	SpanLevelWarning SpanLevel = "WARNING"
	SpanLevelError   SpanLevel = "ERROR"
)

// SpanData is one row in the trace span table: an LLM call, a tool call, or
// the agent-run span that roots them.
type SpanData struct {
	ID         uuid.UUID
	TraceID    uuid.UUID
	ParentSpanID *uuid.UUID
	AgentID    *uuid.UUID
	SpanType   SpanType
	Name       string
	StartTime  time.Time
	EndTime    *time.Time
	DurationMS int
	Model      string
	Provider   string
	Status     SpanStatus
	Level      SpanLevel
	Error      string
	FinishReason string

	ToolName   string
	ToolCallID string

	InputPreview  string
	OutputPreview string

	InputTokens  int
	OutputTokens int
	Metadata     json.RawMessage

	CreatedAt time.Time
}

// TraceStatus is the lifecycle state of a top-level agent run trace.
type TraceStatus string

const (
	TraceStatusRunning   TraceStatus = "running"
	TraceStatusCompleted TraceStatus = "completed"
	TraceStatusError     TraceStatus = "error"
	TraceStatusCancelled TraceStatus = "cancelled"
)

// TraceData is the root record for one agent run — spans (SpanData) nest
// under it via SpanData.TraceID.
type TraceData struct {
	ID            uuid.UUID
	RunID         string
	SessionKey    string
	UserID        string
	Channel       string
	AgentID       *uuid.UUID
	ParentTraceID *uuid.UUID
	Name          string
	InputPreview  string
	OutputPreview string
	Status        TraceStatus
	Error         string
	StartTime     time.Time
	EndTime       *time.Time
	Tags          []string
	CreatedAt     time.Time
}

// TraceSummary aggregates span counts/tokens/duration for one trace (one agent run).
type TraceSummary struct {
	TraceID      uuid.UUID
	AgentID      *uuid.UUID
	SpanCount    int
	LLMCallCount int
	ToolCallCount int
	InputTokens  int
	OutputTokens int
	DurationMS   int
	Status       SpanStatus
	StartedAt    time.Time
}

// TracingStore persists and queries trace spans emitted by agent runs.
type TracingStore interface {
	InsertSpan(span SpanData) error
	ListSpansByTrace(traceID uuid.UUID) ([]SpanData, error)
	ListTraces(agentID *uuid.UUID, limit, offset int) ([]TraceSummary, error)
	PruneOlderThan(cutoff time.Time) (int64, error)
}
