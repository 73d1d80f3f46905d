package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swoga/router-bridge/cache"
	"github.com/swoga/router-bridge/model"
)

// AddMetricsRouter registers the numeric status fields of snapshot. Fields
// the router did not report are left out.
func AddMetricsRouter(registry prometheus.Registerer, snapshot cache.Snapshot, now time.Time) error {
	if snapshot.Empty() {
		return nil
	}

	gauges := []struct {
		name string
		help string
		key  string
	}{
		{"battery_level_percent", "Battery charge in percent.", model.KeyBatteryLevelPercent},
		{"battery_temperature_celsius", "Battery temperature in degrees celsius.", model.KeyBatteryTemperature},
		{"signal_level", "Mobile network signal level in bars.", model.KeySignalLevel},
		{"online_devices", "Number of clients connected to the router.", model.KeyOnlineDeviceCount},
		{"sms_unread", "Number of unread SMS.", model.KeySMSUnreadCount},
		{"uptime_seconds", "Device uptime in seconds.", model.KeyDeviceUptime},
	}
	for _, g := range gauges {
		value, ok := snapshot.Float(g.key)
		if !ok {
			continue
		}
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		})
		if err := registry.Register(gauge); err != nil {
			return err
		}
		gauge.Set(value)
	}

	// Info
	infoGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "info",
		Help: "Textual status of the router, always 1.",
	}, []string{"network_mode", "operator", "dial_status", "internet_mode", "wifi_status"})
	if err := registry.Register(infoGaugeVec); err != nil {
		return err
	}
	label := func(key string) string {
		s, _ := snapshot.String(key)
		return s
	}
	infoGaugeVec.WithLabelValues(
		label(model.KeyNetworkMode),
		label(model.KeyOperatorName),
		label(model.KeyDialStatus),
		label(model.KeyInternetMode),
		label(model.KeyWifiWorkStatus),
	).Set(1)

	// Age
	ageGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_age_seconds",
		Help: "Seconds since the status was last fetched successfully.",
	})
	if err := registry.Register(ageGauge); err != nil {
		return err
	}
	ageGauge.Set(now.Sub(snapshot.FetchedAt()).Seconds())

	return nil
}
