// Package tracing wraps the otel globals the way the teacher's
// tools/internal/telemetry package does, trimmed to HiveMind's scope: a
// process-wide no-op TracerProvider unless an operator configures a real
// one (exporter wiring is deployment-specific and out of the core's scope,
// per SPEC_FULL.md's ambient stack notes), with Store and Embedder calls
// instrumented against whatever provider is globally registered.
package tracing

import (
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hivemind-dev/hivemind"

// Tracer returns the process-wide Tracer, bound to whatever
// TracerProvider is globally registered (a no-op provider if none was
// configured by the embedding binary).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// EnableSampling installs a real sdktrace.TracerProvider that samples every
// span, for operators who want local span output wired into their own
// collector via a batch exporter registered on the returned provider before
// this is called. With no exporter attached, spans are still built and
// ended (cheap) but go nowhere — this only replaces the default no-op
// provider's sampling decision.
func EnableSampling() {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
}
