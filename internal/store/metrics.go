package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/xenking/grocery-console/internal/store"

type metrics struct {
	settled  metric.Int64Counter
	duration metric.Float64Histogram
	dropped  metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	settled, err := meter.Int64Counter("grocer.store.intents",
		metric.WithDescription("Settled intents by domain, operation and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "intents counter")
	}
	duration, err := meter.Float64Histogram("grocer.store.intent.duration",
		metric.WithDescription("Time from issue to settlement"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}
	dropped, err := meter.Int64Counter("grocer.store.changes.dropped",
		metric.WithDescription("Change notifications dropped for slow subscribers"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "dropped counter")
	}
	return &metrics{settled: settled, duration: duration, dropped: dropped}, nil
}

func (m *metrics) observe(ctx context.Context, d Domain, op string, err error, took time.Duration) {
	outcome := "fulfilled"
	if err != nil {
		outcome = "rejected"
	}
	attrs := metric.WithAttributes(
		attribute.String("domain", string(d)),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	m.settled.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}
