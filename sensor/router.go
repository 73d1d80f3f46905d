package sensor

import (
	"context"

	"github.com/swoga/router-bridge/model"
)

type kind int

const (
	kindNumber kind = iota
	kindText
)

// Field projects one status key of a router.
type Field struct {
	id          string
	name        string
	unit        string
	deviceClass string
	icon        string
	key         string
	kind        kind
	source      Source
}

var _ Sensor = (*Field)(nil)

func (f *Field) ID() string          { return f.id }
func (f *Field) Name() string        { return f.name }
func (f *Field) Unit() string        { return f.unit }
func (f *Field) DeviceClass() string { return f.deviceClass }
func (f *Field) Icon() string        { return f.icon }

// Key returns the status key the field projects.
func (f *Field) Key() string { return f.key }

func (f *Field) Update(ctx context.Context) {
	f.source.Refresh(ctx)
}

func (f *Field) State() (interface{}, bool) {
	snapshot := f.source.Snapshot()
	if f.kind == kindText {
		return snapshot.String(f.key)
	}
	return snapshot.Float(f.key)
}

func newField(router, suffix, name, key string, k kind, source Source) *Field {
	return &Field{
		id:     SafeID(router + "_" + suffix),
		name:   name,
		key:    key,
		kind:   k,
		source: source,
	}
}

func NewBattery(router, title string, source Source) *Field {
	f := newField(router, "battery_level", title+" Battery Level", model.KeyBatteryLevelPercent, kindNumber, source)
	f.unit = "%"
	f.deviceClass = "battery"
	return f
}

func NewBatteryTemperature(router, title string, source Source) *Field {
	f := newField(router, "battery_temp", title+" Battery Temperature", model.KeyBatteryTemperature, kindNumber, source)
	f.unit = "°C"
	f.deviceClass = "temperature"
	return f
}

func NewNetworkMode(router, title string, source Source) *Field {
	f := newField(router, "network_mode", title+" Network Mode", model.KeyNetworkMode, kindText, source)
	f.icon = "mdi:signal-4g"
	return f
}

func NewSignalLevel(router, title string, source Source) *Field {
	f := newField(router, "signal_level", title+" Signal Level", model.KeySignalLevel, kindNumber, source)
	f.icon = "mdi:signal-cellular-3"
	return f
}

func NewOnlineDevices(router, title string, source Source) *Field {
	f := newField(router, "online_devices", title+" Online Devices", model.KeyOnlineDeviceCount, kindNumber, source)
	f.icon = "mdi:devices"
	return f
}

// Attributes exposes the whole snapshot as attributes; its state is the
// device uptime.
type Attributes struct {
	id     string
	name   string
	source Source
}

var (
	_ Sensor     = (*Attributes)(nil)
	_ Attributer = (*Attributes)(nil)
)

func NewAttributes(router, title string, source Source) *Attributes {
	return &Attributes{
		id:     SafeID(router + "_extra_attributes"),
		name:   title + " Extra Attributes",
		source: source,
	}
}

func (a *Attributes) ID() string          { return a.id }
func (a *Attributes) Name() string        { return a.name }
func (a *Attributes) Unit() string        { return "" }
func (a *Attributes) DeviceClass() string { return "" }
func (a *Attributes) Icon() string        { return "mdi:router-wireless" }

func (a *Attributes) Update(ctx context.Context) {
	a.source.Refresh(ctx)
}

func (a *Attributes) State() (interface{}, bool) {
	if uptime, ok := a.source.Snapshot().String(model.KeyDeviceUptime); ok {
		return uptime, true
	}
	return "Unknown", true
}

func (a *Attributes) Attributes() map[string]interface{} {
	return a.source.Snapshot().Values()
}
