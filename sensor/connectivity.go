package sensor

import (
	"context"
	"math"

	"github.com/swoga/router-bridge/prober"
)

// TimeLayout is how probe times are rendered in attributes.
const TimeLayout = "2006-01-02 15:04:05"

// Connectivity reports the outcome of the reachability prober: 1 when the
// last probe succeeded, 0 otherwise.
type Connectivity struct {
	id     string
	name   string
	prober *prober.Prober
}

var (
	_ Sensor     = (*Connectivity)(nil)
	_ Attributer = (*Connectivity)(nil)
)

func NewConnectivity(p *prober.Prober) *Connectivity {
	return &Connectivity{
		id:     "network_prober",
		name:   "Network Connectivity",
		prober: p,
	}
}

func (c *Connectivity) ID() string          { return c.id }
func (c *Connectivity) Name() string        { return c.name }
func (c *Connectivity) Unit() string        { return "" }
func (c *Connectivity) DeviceClass() string { return "" }
func (c *Connectivity) Icon() string        { return "mdi:web-check" }

// Prober returns the underlying prober.
func (c *Connectivity) Prober() *prober.Prober { return c.prober }

func (c *Connectivity) Update(ctx context.Context) {
	c.prober.Update(ctx)
}

func (c *Connectivity) State() (interface{}, bool) {
	if c.prober.Last().Success {
		return 1, true
	}
	return 0, true
}

func (c *Connectivity) Attributes() map[string]interface{} {
	last := c.prober.Last()
	attrs := map[string]interface{}{
		"last_probe_time":     nil,
		"last_probe_duration": nil,
		"last_probe_error":    nil,
	}
	if last.Time.IsZero() {
		return attrs
	}
	attrs["last_probe_time"] = last.Time.Format(TimeLayout)
	attrs["last_probe_duration"] = math.Round(last.Duration.Seconds()*100) / 100
	if last.Error != "" {
		attrs["last_probe_error"] = last.Error
	}
	return attrs
}
