package instrument

import (
	"math/rand"

	"github.com/gofiber/fiber/v2"

	"upload-service/internal/config"
)

// Middleware returns a Fiber middleware that sets up tracing for each request.
// It generates (or propagates) a trace ID, creates a root HTTP span, and injects
// the instrumenter into the request context so storage spans nest under it.
func Middleware(cfg config.InstrumentationConfig, sink Sink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || sink == nil {
			return c.Next()
		}

		// Sampling: skip tracing for a proportion of requests
		if cfg.SamplingRate < 1.0 && rand.Float64() > cfg.SamplingRate {
			return c.Next()
		}

		traceID := c.Get("X-Trace-ID")
		if traceID == "" {
			traceID = newUUID()
		}

		instrumenter := NewInstrumenter(sink)
		ctx := WithTraceID(c.UserContext(), traceID)
		ctx = WithInstrumenter(ctx, instrumenter)

		ctx, span := instrumenter.StartSpan(ctx, "http", "handler", "request")
		span.SetMetadata("method", c.Method())
		span.SetMetadata("path", c.Path())
		c.SetUserContext(ctx)

		c.Set("X-Trace-ID", traceID)

		err := c.Next()

		// The error handler has not run yet, so a returned error still
		// counts as a failed request.
		statusCode := c.Response().StatusCode()
		span.SetMetadata("status_code", statusCode)
		if err != nil || statusCode >= 400 {
			span.SetStatus("error")
		} else {
			span.SetStatus("ok")
		}
		span.End()

		return err
	}
}
