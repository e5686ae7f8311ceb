package main

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/tally"
)

// meterSetup picks the meter for the metrics extension. When enabled it
// installs an SDK provider whose totals are reported by flush at exit;
// otherwise the global provider is used, which is a no-op unless an
// embedding program installed one.
type meterSetup struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

func newMeterSetup(enabled bool) *meterSetup {
	if !enabled {
		return &meterSetup{}
	}
	reader := sdkmetric.NewManualReader()
	return &meterSetup{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:   reader,
	}
}

func (m *meterSetup) Meter() metric.Meter {
	if m.provider == nil {
		return otel.Meter(tally.TracerName)
	}
	return m.provider.Meter(tally.TracerName)
}

// flush logs one line per metric and shuts the provider down.
func (m *meterSetup) flush(ctx context.Context, logger *slog.Logger) error {
	if m.provider == nil {
		return nil
	}

	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			switch data := mt.Data.(type) {
			case metricdata.Sum[float64]:
				var total float64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				logger.Info("metric", "name", mt.Name, "value", total)
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				logger.Info("metric", "name", mt.Name, "count", count, "sum", sum)
			}
		}
	}
	return m.provider.Shutdown(ctx)
}
