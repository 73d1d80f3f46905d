package platform

import (
	"context"
	"time"

	"github.com/swoga/router-bridge/api"
	"github.com/swoga/router-bridge/cache"
	"github.com/swoga/router-bridge/sensor"
	"go.uber.org/zap"
)

// Router bundles one session client with its status cache and the views
// projected from it.
type Router struct {
	Name    string
	Title   string
	Client  api.Client
	Cache   *cache.Cache
	Sensors []sensor.Sensor
	Button  *sensor.RebootButton
}

// NewRouter wires the views for the client's protocol family. The REST
// family reports battery and radio fields, the RPC family the number of
// online devices.
func NewRouter(title string, client api.Client, interval time.Duration, log *zap.Logger) *Router {
	name := client.Name()
	if title == "" {
		title = name
	}
	c := cache.New(client.GetStatus, interval)

	r := &Router{
		Name:   name,
		Title:  title,
		Client: client,
		Cache:  c,
		Button: sensor.NewRebootButton(name, title, client, log),
	}

	switch client.Protocol() {
	case api.ProtocolRPC:
		r.Sensors = []sensor.Sensor{
			sensor.NewOnlineDevices(name, title, c),
		}
	default:
		r.Sensors = []sensor.Sensor{
			sensor.NewBattery(name, title, c),
			sensor.NewBatteryTemperature(name, title, c),
			sensor.NewNetworkMode(name, title, c),
			sensor.NewSignalLevel(name, title, c),
		}
	}
	r.Sensors = append(r.Sensors, sensor.NewAttributes(name, title, c))

	return r
}

// Update polls the router once. It is driven by the platform tick and
// bypasses the cache throttle; the throttled Update of the views serves
// callers outside the tick.
func (r *Router) Update(ctx context.Context) {
	r.Cache.ForceRefresh(ctx)
}

// States returns the current value of every view, nil for unknown.
func (r *Router) States() map[string]interface{} {
	states := make(map[string]interface{}, len(r.Sensors))
	for _, s := range r.Sensors {
		state, ok := s.State()
		if !ok {
			state = nil
		}
		states[s.ID()] = state
	}
	return states
}
