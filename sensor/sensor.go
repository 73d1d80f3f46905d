// Package sensor contains the read-only views projected from a router's
// status cache, the connectivity view and the reboot control.
package sensor

import (
	"context"
	"regexp"
	"strings"

	"github.com/swoga/router-bridge/cache"
)

// Entity is anything the platform registers under a unique id.
type Entity interface {
	ID() string
	Name() string
}

// Sensor is a read-only entity with a single state value.
type Sensor interface {
	Entity
	Unit() string
	DeviceClass() string
	Icon() string

	// Update pulls fresh data through the owner's throttled refresh.
	Update(ctx context.Context)

	// State returns the current value; false means unknown.
	State() (interface{}, bool)
}

// Attributer is implemented by sensors that expose extra attributes.
type Attributer interface {
	Attributes() map[string]interface{}
}

// Rebootable is implemented by entities that can restart their device.
type Rebootable interface {
	Entity
	Reboot(ctx context.Context)
}

// Source is the status cache of one router.
type Source interface {
	Refresh(ctx context.Context) cache.Snapshot
	Snapshot() cache.Snapshot
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SafeID lowercases s and replaces anything but letters, digits and
// underscores, so it can be used as entity or MQTT object id.
func SafeID(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
