// Package tracing collects per-run LLM/tool/agent spans, persists them
// through a store.TracingStore, and mirrors them onto an OpenTelemetry
// tracer when one is configured so traces can also be shipped to an OTLP
// collector. Modeled on the auto-select embedded-vs-service tracer split in
// the reference observability package this was grounded on, simplified to a
// single persist-and-optionally-export path.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// Collector persists spans emitted by the agent loop and, when otelTracer is
// non-nil, re-emits them as OTel spans for OTLP export.
type Collector struct {
	store      store.TracingStore
	verbose    bool
	otelTracer oteltrace.Tracer

	mu     sync.Mutex
	active map[uuid.UUID]oteltrace.Span // root "agent" span per in-flight trace
}

// NewCollector builds a collector backed by the given tracing store.
// Pass a nil store to run in OTel-export-only mode (no local persistence).
func NewCollector(s store.TracingStore) *Collector {
	return &Collector{
		store:      s,
		otelTracer: otel.Tracer("agentbridge/agent"),
		active:     make(map[uuid.UUID]oteltrace.Span),
	}
}

// CreateTrace opens the root OTel span for one agent run. The trace record
// itself is not persisted, with or without a TracingStore: the store only
// receives spans, through EmitSpan.
func (c *Collector) CreateTrace(ctx context.Context, trace *store.TraceData) error {
	_, span := c.otelTracer.Start(ctx, trace.Name,
		oteltrace.WithAttributes(
			attribute.String("run_id", trace.RunID),
			attribute.String("session_key", trace.SessionKey),
			attribute.String("channel", trace.Channel),
		),
	)
	c.mu.Lock()
	c.active[trace.ID] = span
	c.mu.Unlock()
	return nil
}

// FinishTrace closes the root span opened by CreateTrace.
func (c *Collector) FinishTrace(ctx context.Context, traceID uuid.UUID, status store.TraceStatus, errMsg, outputPreview string) {
	c.mu.Lock()
	span, ok := c.active[traceID]
	delete(c.active, traceID)
	c.mu.Unlock()
	if !ok {
		return
	}
	if status == store.TraceStatusError || status == store.TraceStatusCancelled {
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, outputPreview)
	}
	span.End(oteltrace.WithTimestamp(time.Now().UTC()))
}

// SetVerbose toggles full input/output preview capture (vs. truncated previews).
func (c *Collector) SetVerbose(v bool) { c.verbose = v }

// Verbose reports whether full previews should be captured.
func (c *Collector) Verbose() bool { return c.verbose }

// EmitSpan persists the span and mirrors it to the configured OTel tracer.
func (c *Collector) EmitSpan(span store.SpanData) {
	if c.store != nil {
		if err := c.store.InsertSpan(span); err != nil {
			slog.Error("tracing.emit_span_failed", "error", err, "span_type", span.SpanType)
		}
	}
	c.mirrorOTel(span)
}

func (c *Collector) mirrorOTel(span store.SpanData) {
	if c.otelTracer == nil {
		return
	}
	_, otelSpan := c.otelTracer.Start(context.Background(), span.Name,
		oteltrace.WithTimestamp(span.StartTime),
		oteltrace.WithAttributes(
			attribute.String("span.type", string(span.SpanType)),
			attribute.String("model", span.Model),
			attribute.String("provider", span.Provider),
			attribute.Int("input_tokens", span.InputTokens),
			attribute.Int("output_tokens", span.OutputTokens),
		),
	)
	if span.Status == store.SpanStatusError {
		otelSpan.SetStatus(codes.Error, span.Error)
	} else {
		otelSpan.SetStatus(codes.Ok, "")
	}
	end := span.StartTime
	if span.EndTime != nil {
		end = *span.EndTime
	}
	otelSpan.End(oteltrace.WithTimestamp(end))
}
