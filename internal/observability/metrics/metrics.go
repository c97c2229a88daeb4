// Package metrics gives the kernel optional OTel instrumentation: counters
// for spawns, restarts, stops, and dead letters, and a tracer for the
// restart/escalation path. The kernel depends only on the otel API modules
// (§9 Non-goals excludes running a metrics sink); with no SDK registered,
// the global meter/tracer providers are OTel's own no-op implementations,
// so this package works unconfigured.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/actorkit/kernel"

// Recorder is the set of counters the kernel can publish to. ActorSystem
// records spawns; the restart, stop and dead-letter counters and the
// restart span have no caller in this module.
type Recorder struct {
	tracer trace.Tracer

	spawns      metric.Int64Counter
	restarts    metric.Int64Counter
	stops       metric.Int64Counter
	deadLetters metric.Int64Counter
}

// New builds a Recorder against the global otel providers. Callers that
// want real export wire an SDK MeterProvider/TracerProvider via
// otel.SetMeterProvider/SetTracerProvider before calling New; that wiring
// lives outside this module per §9.
func New() (*Recorder, error) {
	meter := otel.Meter(instrumentationName)

	spawns, err := meter.Int64Counter("actorkit.actor.spawns",
		metric.WithDescription("actors spawned"))
	if err != nil {
		return nil, err
	}
	restarts, err := meter.Int64Counter("actorkit.actor.restarts",
		metric.WithDescription("supervised restarts"))
	if err != nil {
		return nil, err
	}
	stops, err := meter.Int64Counter("actorkit.actor.stops",
		metric.WithDescription("actors terminated"))
	if err != nil {
		return nil, err
	}
	deadLetters, err := meter.Int64Counter("actorkit.deadletters",
		metric.WithDescription("messages routed to dead letters"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		tracer:      otel.Tracer(instrumentationName),
		spawns:      spawns,
		restarts:    restarts,
		stops:       stops,
		deadLetters: deadLetters,
	}, nil
}

func (r *Recorder) RecordSpawn(ctx context.Context)      { r.spawns.Add(ctx, 1) }
func (r *Recorder) RecordRestart(ctx context.Context)    { r.restarts.Add(ctx, 1) }
func (r *Recorder) RecordStop(ctx context.Context)       { r.stops.Add(ctx, 1) }
func (r *Recorder) RecordDeadLetter(ctx context.Context) { r.deadLetters.Add(ctx, 1) }

// StartRestartSpan traces one supervised restart attempt, from failure
// detection through the backoff wait to PostRestart.
func (r *Recorder) StartRestartSpan(ctx context.Context, actorPath string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "actorkit.restart", trace.WithAttributes())
}
