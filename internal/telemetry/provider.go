package telemetry

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	meterProviderOnce sync.Once
	meterProviderErr  error
)

// SetupMeterProvider installs a Prometheus-backed meter provider as the
// OTel global, so stage instruments export through the same /metrics
// endpoint as the native collectors. Installed once per process;
// repeated calls return the first outcome. Must run before any
// StageMetrics is constructed.
func SetupMeterProvider() error {
	meterProviderOnce.Do(func() {
		exporter, err := otelprom.New()
		if err != nil {
			meterProviderErr = fmt.Errorf("creating prometheus exporter: %w", err)
			return
		}
		otel.SetMeterProvider(sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
		))
	})
	return meterProviderErr
}
