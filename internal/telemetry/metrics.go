package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments recorded by the interaction engine.
// All methods are nil-safe.
type Metrics struct {
	Runs         metric.Int64Counter
	Interactions metric.Int64Counter
	Polls        metric.Int64Counter
	RunDuration  metric.Float64Histogram
}

// NewMetrics creates the instruments from the global MeterProvider. With no
// provider registered they are no-ops, so this is safe to call
// unconditionally.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)
	m := &Metrics{}
	var err error

	m.Runs, err = meter.Int64Counter("crawler.runs",
		metric.WithDescription("Interaction runs partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.Interactions, err = meter.Int64Counter("crawler.interactions",
		metric.WithDescription("Matcher evaluations partitioned by matcher kind and result"))
	if err != nil {
		return nil, err
	}

	m.Polls, err = meter.Int64Counter("crawler.polls",
		metric.WithDescription("Device screens polled while waiting for interactions"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("crawler.run.duration",
		metric.WithDescription("Wall-clock duration of interaction runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records a finished Run or Check.
func (m *Metrics) RecordRun(ctx context.Context, mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("run.mode", mode),
		attribute.String("run.outcome", outcome),
	)
	m.Runs.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordInteraction records one matcher evaluation.
func (m *Metrics) RecordInteraction(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.Interactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("matcher.kind", kind),
		attribute.String("matcher.result", result),
	))
}

// RecordPoll records one screen poll.
func (m *Metrics) RecordPoll(ctx context.Context) {
	if m == nil {
		return
	}
	m.Polls.Add(ctx, 1)
}
