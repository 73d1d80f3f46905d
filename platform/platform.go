// Package platform registers the routers, their views and the connectivity
// prober, and drives the periodic update loop.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/swoga/router-bridge/api"
	"github.com/swoga/router-bridge/config"
	"github.com/swoga/router-bridge/prober"
	"github.com/swoga/router-bridge/sensor"
	"go.uber.org/zap"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrNotRebootable = errors.New("entity cannot reboot")
)

type Platform struct {
	routers      []*Router
	byName       map[string]*Router
	connectivity *sensor.Connectivity
	entities     []sensor.Entity
	byID         map[string]sensor.Entity
	log          *zap.Logger
}

// New registers the given routers and the optional connectivity view.
// Entity ids must be unique across all of them.
func New(routers []*Router, connectivity *sensor.Connectivity, log *zap.Logger) (*Platform, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Platform{
		routers:      routers,
		byName:       make(map[string]*Router, len(routers)),
		connectivity: connectivity,
		byID:         make(map[string]sensor.Entity),
		log:          log,
	}

	for _, r := range routers {
		if _, ok := p.byName[r.Name]; ok {
			return nil, fmt.Errorf("duplicate router %q", r.Name)
		}
		p.byName[r.Name] = r
		for _, s := range r.Sensors {
			if err := p.register(s); err != nil {
				return nil, err
			}
		}
		if r.Button != nil {
			if err := p.register(r.Button); err != nil {
				return nil, err
			}
		}
	}
	if connectivity != nil {
		if err := p.register(connectivity); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Platform) register(e sensor.Entity) error {
	if _, ok := p.byID[e.ID()]; ok {
		return fmt.Errorf("duplicate entity id %q", e.ID())
	}
	p.byID[e.ID()] = e
	p.entities = append(p.entities, e)
	return nil
}

// FromConfig creates one client per configured router and the prober.
func FromConfig(c *config.Config, log *zap.Logger) (*Platform, error) {
	if log == nil {
		log = zap.NewNop()
	}

	routers := make([]*Router, 0, len(c.Routers))
	for _, name := range c.RouterNames() {
		rc := c.Routers[name]
		protocol, err := api.ParseProtocol(rc.Protocol)
		if err != nil {
			return nil, fmt.Errorf("router %q: %w", name, err)
		}
		client, err := api.New(name, protocol, rc.ClientOptions(c.RequestTimeout), log)
		if err != nil {
			return nil, fmt.Errorf("router %q: %w", name, err)
		}
		routers = append(routers, NewRouter(rc.Title, client, c.ScanInterval, log))
	}

	var connectivity *sensor.Connectivity
	if c.Prober.Enabled {
		pr, err := prober.New(prober.Options{
			Target:     c.Prober.TestURL,
			Method:     prober.Method(c.Prober.Method),
			Timeout:    c.Prober.Timeout,
			Interval:   c.ScanInterval,
			Privileged: c.Prober.Privileged,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("prober: %w", err)
		}
		connectivity = sensor.NewConnectivity(pr)
	}

	return New(routers, connectivity, log)
}

func (p *Platform) Routers() []*Router {
	return p.routers
}

func (p *Platform) Router(name string) (*Router, bool) {
	r, ok := p.byName[name]
	return r, ok
}

// Entities returns every registered entity in registration order.
func (p *Platform) Entities() []sensor.Entity {
	return p.entities
}

func (p *Platform) Entity(id string) (sensor.Entity, bool) {
	e, ok := p.byID[id]
	return e, ok
}

// Connectivity returns nil when probing is disabled.
func (p *Platform) Connectivity() *sensor.Connectivity {
	return p.connectivity
}

// Update polls every router and the prober once, in parallel.
func (p *Platform) Update(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range p.routers {
		wg.Add(1)
		go func(r *Router) {
			defer wg.Done()
			r.Update(ctx)
		}(r)
	}
	if p.connectivity != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.connectivity.Prober().Probe(ctx)
		}()
	}
	wg.Wait()
}

// Run updates immediately and then every interval until ctx is done.
// onTick is called after each update.
func (p *Platform) Run(ctx context.Context, interval time.Duration, onTick func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.Update(ctx)
		if onTick != nil {
			onTick(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reboot restarts the entity with the given id. An empty id reboots every
// entity that supports it.
func (p *Platform) Reboot(ctx context.Context, entityID string) error {
	if entityID == "" {
		for _, e := range p.entities {
			if r, ok := e.(sensor.Rebootable); ok {
				p.log.Debug("broadcast reboot", zap.String("entity_id", r.ID()))
				r.Reboot(ctx)
			}
		}
		return nil
	}

	e, ok := p.byID[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
	}
	r, ok := e.(sensor.Rebootable)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRebootable, entityID)
	}
	r.Reboot(ctx)
	return nil
}
