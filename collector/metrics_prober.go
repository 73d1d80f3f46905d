package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/swoga/router-bridge/prober"
)

// AddMetricsProber registers the outcome of the last connectivity probe.
func AddMetricsProber(registry prometheus.Registerer, result prober.Result) error {
	registry = prometheus.WrapRegistererWithPrefix("connectivity_", registry)

	upGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "up",
		Help: "Whether the last connectivity probe succeeded.",
	})
	if err := registry.Register(upGauge); err != nil {
		return err
	}
	if result.Success {
		upGauge.Set(1)
	}

	// nothing more to report before the first probe
	if result.Time.IsZero() {
		return nil
	}

	durationGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "probe_duration_seconds",
		Help: "Duration of the last connectivity probe.",
	})
	if err := registry.Register(durationGauge); err != nil {
		return err
	}
	durationGauge.Set(result.Duration.Seconds())

	timestampGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "last_probe_timestamp_seconds",
		Help: "Unix time of the last connectivity probe.",
	})
	if err := registry.Register(timestampGauge); err != nil {
		return err
	}
	timestampGauge.Set(float64(result.Time.UnixNano()) / 1e9)

	return nil
}
