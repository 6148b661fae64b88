package instrument

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"upload-service/internal/config"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Enqueue(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestSpan_NestsUnderParent(t *testing.T) {
	sink := &recordingSink{}
	inst := NewInstrumenter(sink)
	ctx := WithTraceID(context.Background(), "trace-1")

	ctx, parent := inst.StartSpan(ctx, "http", "handler", "request")
	_, child := inst.StartSpan(ctx, "storage", "local", "store")
	child.SetEntity("file", "a.bin")
	child.SetStatus("ok")
	child.End()
	child.End()
	parent.End()

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 events (End is idempotent), got %d", len(events))
	}
	got := events[0]
	if got.TraceID != "trace-1" || got.Action != "store" || got.EventType != "system" {
		t.Fatalf("unexpected child event %+v", got)
	}
	if got.ParentSpanID == nil || *got.ParentSpanID != parent.SpanID() {
		t.Fatal("child span should reference the parent span")
	}
	if got.RecordID == nil || *got.RecordID != "a.bin" || got.DurationMs == nil {
		t.Fatalf("missing record or duration: %+v", got)
	}
	if events[1].ParentSpanID != nil {
		t.Fatal("root span has no parent")
	}
}

func TestEmitBusinessEvent(t *testing.T) {
	sink := &recordingSink{}
	inst := NewInstrumenter(sink)
	ctx := WithTraceID(context.Background(), "trace-2")

	inst.EmitBusinessEvent(ctx, "files.purged", "file", "", nil)

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != "business" || e.Action != "files.purged" || e.RecordID != nil {
		t.Fatalf("unexpected business event %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("business events carry a timestamp")
	}
}

func TestEmitBusinessEvent_ComponentFromEnclosingSpan(t *testing.T) {
	sink := &recordingSink{}
	inst := NewInstrumenter(sink)
	ctx := WithTraceID(context.Background(), "trace-3")

	spanCtx, span := inst.StartSpan(ctx, "storage", "local", "store")
	inst.EmitBusinessEvent(spanCtx, "file.stored", "file", "a.bin", nil)
	span.End()
	inst.EmitBusinessEvent(ctx, "files.purged", "file", "", nil)

	events := sink.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	inside, outside := events[0], events[2]
	if inside.Component != "storage" {
		t.Fatalf("expected component storage inside a storage span, got %q", inside.Component)
	}
	if inside.ParentSpanID == nil || *inside.ParentSpanID != span.SpanID() {
		t.Fatal("business event should be a child of the enclosing span")
	}
	if outside.Component != "app" || outside.ParentSpanID != nil {
		t.Fatalf("unexpected event outside any span: %+v", outside)
	}
	if outside.TraceID != "trace-3" || outside.Entity == nil || *outside.Entity != "file" {
		t.Fatalf("trace and entity should still be recorded: %+v", outside)
	}
}

func TestGetInstrumenter_DefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	if _, ok := inst.(*NoopInstrumenter); !ok {
		t.Fatalf("expected NoopInstrumenter, got %T", inst)
	}
	_, span := inst.StartSpan(context.Background(), "a", "b", "c")
	span.End()
	if span.SpanID() != "" {
		t.Fatal("noop spans have no ID")
	}
}

func newTracedApp(cfg config.InstrumentationConfig, sink Sink) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg, sink))
	app.Get("/ok", func(c *fiber.Ctx) error {
		_, span := GetInstrumenter(c.UserContext()).StartSpan(c.UserContext(), "storage", "local", "list")
		span.End()
		return c.SendString("ok")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "missing")
	})
	return app
}

func TestMiddleware_TracesRequests(t *testing.T) {
	sink := &recordingSink{}
	app := newTracedApp(config.InstrumentationConfig{Enabled: true, SamplingRate: 1.0}, sink)

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set("X-Trace-ID", "incoming")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("X-Trace-ID") != "incoming" {
		t.Fatalf("trace ID should be echoed, got %q", resp.Header.Get("X-Trace-ID"))
	}

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected handler and request spans, got %d", len(events))
	}
	root := events[1]
	if root.Action != "request" || root.TraceID != "incoming" || *root.Status != "ok" {
		t.Fatalf("unexpected root span %+v", root)
	}
	if *events[0].ParentSpanID != root.SpanID {
		t.Fatal("handler span should nest under the request span")
	}

	if _, err := app.Test(httptest.NewRequest("GET", "/fail", nil), -1); err != nil {
		t.Fatal(err)
	}
	events = sink.all()
	last := events[len(events)-1]
	if *last.Status != "error" {
		t.Fatalf("failed request should be marked error, got %s", *last.Status)
	}
	if last.TraceID == "" || last.TraceID == "incoming" {
		t.Fatal("a fresh trace ID should be generated")
	}
}

func TestMiddleware_DisabledOrSampledOut(t *testing.T) {
	for name, cfg := range map[string]config.InstrumentationConfig{
		"disabled":    {Enabled: false, SamplingRate: 1.0},
		"sampled out": {Enabled: true, SamplingRate: 0},
	} {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			app := newTracedApp(cfg, sink)
			resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if n := len(sink.all()); n != 0 {
				t.Fatalf("expected no events, got %d", n)
			}
		})
	}
}
