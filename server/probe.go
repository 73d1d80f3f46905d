package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swoga/router-bridge/collector"
	"github.com/swoga/router-bridge/config"
	"github.com/swoga/router-bridge/platform"
	"go.uber.org/zap"
)

var errNoStatus = errors.New("router returned no status")

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	config := s.config()
	target := r.URL.Query().Get("target")
	if target == "" {
		s.log.Error("request with missing target")
		http.Error(w, "?target= missing", http.StatusBadRequest)
		return
	}

	log := s.log.With(zap.String("target", target))
	p := s.platform()

	var probe func(ctx context.Context, registry prometheus.Registerer) error
	if target == ConnectivityTarget {
		connectivity := p.Connectivity()
		if connectivity == nil {
			log.Error("connectivity prober disabled")
			http.Error(w, "connectivity prober disabled", http.StatusBadRequest)
			return
		}
		probe = func(ctx context.Context, registry prometheus.Registerer) error {
			result := connectivity.Prober().Update(ctx)
			return collector.AddMetricsProber(registry, result)
		}
	} else {
		router, ok := p.Router(target)
		if !ok {
			log.Error("unknown target")
			http.Error(w, "unknown target", http.StatusBadRequest)
			return
		}
		probe = func(ctx context.Context, registry prometheus.Registerer) error {
			return probeRouter(ctx, router, registry)
		}
	}

	timeout := getTimeout(config, r)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout*float64(time.Second)))
	defer cancel()
	r = r.WithContext(ctx)

	start := time.Now()
	registry := prometheus.NewRegistry()
	bridgeRegistry := prometheus.WrapRegistererWithPrefix("router_bridge_", registry)

	err := probe(ctx, bridgeRegistry)
	var success float64 = 1
	if err != nil {
		log.Error("error probing target", zap.Error(err))
		success = 0
	}

	probeDurationGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "probe_duration_seconds",
		Help: "Returns how long the probe took to complete in seconds",
	})
	registry.MustRegister(probeDurationGauge)
	duration := time.Since(start).Seconds()
	probeDurationGauge.Set(duration)

	probeSuccessGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "probe_success",
		Help: "Displays whether or not the probe was a success",
	})
	registry.MustRegister(probeSuccessGauge)
	probeSuccessGauge.Set(success)

	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	h.ServeHTTP(w, r)
}

func getTimeout(config *config.Config, r *http.Request) float64 {
	value := r.Header.Get("X-Prometheus-Scrape-Timeout-Seconds")
	if value != "" {
		timeout, err := strconv.ParseFloat(value, 64)
		if err == nil && timeout > 0 {
			return timeout
		}
	}
	return config.Timeout
}

// probeRouter refreshes the router through its throttled cache. A router
// that never answered fails the probe.
func probeRouter(ctx context.Context, router *platform.Router, registry prometheus.Registerer) error {
	snapshot := router.Cache.Refresh(ctx)
	if snapshot.Empty() {
		return errNoStatus
	}
	return collector.AddMetricsRouter(registry, snapshot, time.Now())
}
