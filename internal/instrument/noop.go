package instrument

import "context"

// NoopInstrumenter drops everything. Storage code gets it when the request
// was not traced or the caller never installed an instrumenter.
type NoopInstrumenter struct{}

var noopSpan = &NoopSpan{}

func (n *NoopInstrumenter) StartSpan(ctx context.Context, _, _, _ string) (context.Context, Span) {
	return ctx, noopSpan
}

func (n *NoopInstrumenter) EmitBusinessEvent(context.Context, string, string, string, map[string]any) {}

// NoopSpan is shared by every untraced operation; it holds no state.
type NoopSpan struct{}

func (*NoopSpan) End()                     {}
func (*NoopSpan) SetStatus(string)         {}
func (*NoopSpan) SetMetadata(string, any)  {}
func (*NoopSpan) SetEntity(string, string) {}
func (*NoopSpan) TraceID() string          { return "" }
func (*NoopSpan) SpanID() string           { return "" }
