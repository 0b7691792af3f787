package spsc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/spsc/pkg/spsc"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instrument registers observable instruments reading the channel counters.
// Nothing is recorded on the send/receive path; values are sampled at
// collection time.
func (s *state[T]) instrument(m metric.Meter) error {
	sent, err := m.Int64ObservableCounter(
		"spsc.sent",
		metric.WithDescription("Total values enqueued"),
	)
	if err != nil {
		return fmt.Errorf("creating sent counter: %w", err)
	}

	received, err := m.Int64ObservableCounter(
		"spsc.received",
		metric.WithDescription("Total values dequeued"),
	)
	if err != nil {
		return fmt.Errorf("creating received counter: %w", err)
	}

	rejected, err := m.Int64ObservableCounter(
		"spsc.rejected",
		metric.WithDescription("Total non-blocking operations that failed"),
	)
	if err != nil {
		return fmt.Errorf("creating rejected counter: %w", err)
	}

	depth, err := m.Int64ObservableGauge(
		"spsc.depth",
		metric.WithDescription("Current number of buffered values"),
	)
	if err != nil {
		return fmt.Errorf("creating depth gauge: %w", err)
	}

	attrs := metric.WithAttributes(attribute.String("channel", s.name))
	reg, err := m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(sent, int64(s.sent.Load()), attrs)
			o.ObserveInt64(received, int64(s.received.Load()), attrs)
			o.ObserveInt64(rejected, int64(s.rejected.Load()), attrs)
			o.ObserveInt64(depth, int64(s.len()), attrs)
			return nil
		},
		sent, received, rejected, depth,
	)
	if err != nil {
		return fmt.Errorf("registering channel callback: %w", err)
	}
	s.reg = reg

	return nil
}
