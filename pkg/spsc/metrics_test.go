package spsc

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if v, ok := dp.Attributes.Value("channel"); ok && v.AsString() == "orders" {
						values[m.Name] = dp.Value
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if v, ok := dp.Attributes.Value("channel"); ok && v.AsString() == "orders" {
						values[m.Name] = dp.Value
					}
				}
			}
		}
	}
	return values
}

func TestMetrics_ObserveCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rx, tx := New[int](2, WithName("orders"), WithMeter(provider.Meter("test")))

	tx.Send(1)
	tx.Send(2)
	assert.False(t, tx.TrySend(3))
	rx.Receive()

	values := collect(t, reader)
	assert.Equal(t, int64(2), values["spsc.sent"])
	assert.Equal(t, int64(1), values["spsc.received"])
	assert.Equal(t, int64(1), values["spsc.rejected"])
	assert.Equal(t, int64(1), values["spsc.depth"])

	rx.Close()
}

func TestWithLogger_LogsCloseOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rx, tx := New[string](4, WithName("events"), WithLogger(logger))
	tx.Send("x")
	tx.Close()
	rx.Close()
	tx.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "channel closed", entry["msg"])
	assert.Equal(t, "events", entry["channel"])
	assert.Equal(t, "sender", entry["by"])
	assert.Equal(t, float64(1), entry["pending"]) // JSON numbers are float64
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	rx, tx := New[int](1, WithLogger(nil), WithMeter(nil))
	tx.Close()
	assert.False(t, rx.IsOpen())
}
