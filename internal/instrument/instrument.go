package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Instrumenter opens spans and records one-shot business events.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
	EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any)
}

// Span is one timed operation. End hands it to the sink.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
	TraceID() string
	SpanID() string
}

// Sink receives finished events. *EventBuffer is the production sink.
type Sink interface {
	Enqueue(event Event)
}

// Event is one row of the _events table.
type Event struct {
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
	ParentSpanID *string        `json:"parent_span_id"`
	EventType    string         `json:"event_type"`
	Source       string         `json:"source"`
	Component    string         `json:"component"`
	Action       string         `json:"action"`
	Entity       *string        `json:"entity"`
	RecordID     *string        `json:"record_id"`
	DurationMs   *float64       `json:"duration_ms"`
	Status       *string        `json:"status"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// defaultComponent tags business events emitted outside any span.
const defaultComponent = "app"

type ctxKey int

const (
	spanKey ctxKey = iota
	instrumenterKey
)

// spanContext is what an open span passes down to work started under it.
type spanContext struct {
	traceID string
	spanID  string
	source  string
}

func currentSpan(ctx context.Context) spanContext {
	sc, _ := ctx.Value(spanKey).(spanContext)
	return sc
}

func newUUID() string {
	return uuid.New().String()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WithTraceID starts (or joins) the trace with the given ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	sc := currentSpan(ctx)
	sc.traceID = traceID
	return context.WithValue(ctx, spanKey, sc)
}

// GetTraceID returns the trace ID carried by ctx.
func GetTraceID(ctx context.Context) string {
	return currentSpan(ctx).traceID
}

// WithInstrumenter installs inst for everything downstream of ctx.
func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, instrumenterKey, inst)
}

// GetInstrumenter returns the instrumenter in ctx, or a NoopInstrumenter.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if v, ok := ctx.Value(instrumenterKey).(Instrumenter); ok {
		return v
	}
	return &NoopInstrumenter{}
}

// InstrumenterImpl turns spans and business events into Events for a Sink.
type InstrumenterImpl struct {
	sink Sink
}

func NewInstrumenter(sink Sink) *InstrumenterImpl {
	return &InstrumenterImpl{sink: sink}
}

// StartSpan opens a span under whatever span ctx carries. The returned
// context makes it the parent of spans and business events started from it.
func (i *InstrumenterImpl) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	parent := currentSpan(ctx)
	span := &SpanImpl{
		sink:  i.sink,
		start: time.Now(),
		ev: Event{
			TraceID:      parent.traceID,
			SpanID:       newUUID(),
			ParentSpanID: optional(parent.spanID),
			EventType:    "system",
			Source:       source,
			Component:    component,
			Action:       action,
			Metadata:     make(map[string]any),
		},
	}
	ctx = context.WithValue(ctx, spanKey, spanContext{
		traceID: parent.traceID,
		spanID:  span.ev.SpanID,
		source:  source,
	})
	return ctx, span
}

// EmitBusinessEvent records a domain fact such as a stored file. Its
// component is the source of the enclosing span, so a file.stored event
// raised inside a storage span is filed under "storage".
func (i *InstrumenterImpl) EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any) {
	sc := currentSpan(ctx)
	component := sc.source
	if component == "" {
		component = defaultComponent
	}
	i.sink.Enqueue(Event{
		TraceID:      sc.traceID,
		SpanID:       newUUID(),
		ParentSpanID: optional(sc.spanID),
		EventType:    "business",
		Source:       "business",
		Component:    component,
		Action:       action,
		Entity:       optional(entity),
		RecordID:     optional(recordID),
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	})
}

// SpanImpl fills in its Event as the operation runs and enqueues it on End.
type SpanImpl struct {
	sink  Sink
	start time.Time

	mu    sync.Mutex
	ev    Event
	ended bool
}

func (s *SpanImpl) TraceID() string { return s.ev.TraceID }
func (s *SpanImpl) SpanID() string  { return s.ev.SpanID }

func (s *SpanImpl) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ev.Status = &status
}

func (s *SpanImpl) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ev.Metadata[key] = value
}

func (s *SpanImpl) SetEntity(entity, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ev.Entity = &entity
	s.ev.RecordID = optional(recordID)
}

// End stamps the duration and hands the event to the sink. Later calls
// are ignored.
func (s *SpanImpl) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	durationMs := float64(time.Since(s.start).Microseconds()) / 1000.0
	s.ev.DurationMs = &durationMs
	s.ev.CreatedAt = time.Now().UTC()
	s.sink.Enqueue(s.ev)
}
