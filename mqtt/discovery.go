package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/common/version"
	"github.com/swoga/router-bridge/platform"
	"github.com/swoga/router-bridge/sensor"
)

// bridgeGroup is the topic level used for entities not owned by a router.
const bridgeGroup = "bridge"

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadPress   = "PRESS"
	// HA sets a sensor to unknown when it receives this payload
	payloadNone = "None"
)

// DiscoveryConfig holds a single HA MQTT discovery payload.
type DiscoveryConfig struct {
	Topic   string
	Payload []byte
}

// HADevice is the "device" block in HA discovery payloads.
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// SensorConfig is the HA discovery payload for sensor.
type SensorConfig struct {
	Name                string   `json:"name"`
	ObjectID            string   `json:"object_id"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic"`
	JSONAttributesTopic string   `json:"json_attributes_topic,omitempty"`
	UnitOfMeasurement   string   `json:"unit_of_measurement,omitempty"`
	DeviceClass         string   `json:"device_class,omitempty"`
	StateClass          string   `json:"state_class,omitempty"`
	Icon                string   `json:"icon,omitempty"`
	AvailabilityTopic   string   `json:"availability_topic"`
	Device              HADevice `json:"device"`
}

// ButtonConfig is the HA discovery payload for button.
type ButtonConfig struct {
	Name              string   `json:"name"`
	ObjectID          string   `json:"object_id"`
	UniqueID          string   `json:"unique_id"`
	CommandTopic      string   `json:"command_topic"`
	PayloadPress      string   `json:"payload_press"`
	DeviceClass       string   `json:"device_class,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	Device            HADevice `json:"device"`
}

func availabilityTopic(prefix string) string {
	return prefix + "/status"
}

func stateTopic(prefix, group, entityID string) string {
	return fmt.Sprintf("%s/%s/%s/state", prefix, group, entityID)
}

func attributesTopic(prefix, group string) string {
	return fmt.Sprintf("%s/%s/attributes", prefix, group)
}

func commandTopic(prefix, router string) string {
	return fmt.Sprintf("%s/%s/reboot/set", prefix, router)
}

func serviceTopic(prefix string) string {
	return prefix + "/reboot"
}

func bridgeDevice() HADevice {
	return HADevice{
		Identifiers: []string{"router_bridge"},
		Name:        "Router Bridge",
		SWVersion:   version.Version,
	}
}

// routerDevice links the router to the bridge device only when that device
// is announced, which happens through the connectivity sensor.
func routerDevice(r *platform.Router, viaBridge bool) HADevice {
	device := HADevice{
		Identifiers: []string{"router_bridge_" + sensor.SafeID(r.Name)},
		Name:        r.Title,
		Model:       string(r.Client.Protocol()),
	}
	if viaBridge {
		device.ViaDevice = "router_bridge"
	}
	return device
}

func buildSensorConfig(s sensor.Sensor, device HADevice, prefix, haPrefix, group string) (DiscoveryConfig, error) {
	cfg := SensorConfig{
		Name:              s.Name(),
		ObjectID:          s.ID(),
		UniqueID:          "router_bridge_" + s.ID(),
		StateTopic:        stateTopic(prefix, group, s.ID()),
		UnitOfMeasurement: s.Unit(),
		DeviceClass:       s.DeviceClass(),
		Icon:              s.Icon(),
		AvailabilityTopic: availabilityTopic(prefix),
		Device:            device,
	}
	if s.Unit() != "" {
		cfg.StateClass = "measurement"
	}
	if _, ok := s.(sensor.Attributer); ok {
		cfg.JSONAttributesTopic = attributesTopic(prefix, group)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return DiscoveryConfig{}, err
	}
	return DiscoveryConfig{
		Topic:   fmt.Sprintf("%s/sensor/%s/config", haPrefix, s.ID()),
		Payload: payload,
	}, nil
}

func buildButtonConfig(r *platform.Router, device HADevice, prefix, haPrefix string) (DiscoveryConfig, error) {
	cfg := ButtonConfig{
		Name:              r.Button.Name(),
		ObjectID:          r.Button.ID(),
		UniqueID:          "router_bridge_" + r.Button.ID(),
		CommandTopic:      commandTopic(prefix, r.Name),
		PayloadPress:      payloadPress,
		DeviceClass:       "restart",
		AvailabilityTopic: availabilityTopic(prefix),
		Device:            device,
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return DiscoveryConfig{}, err
	}
	return DiscoveryConfig{
		Topic:   fmt.Sprintf("%s/button/%s/config", haPrefix, r.Button.ID()),
		Payload: payload,
	}, nil
}

// BuildDiscoveryConfigs creates the HA discovery payloads for every entity of
// the platform. Entities whose payload cannot be encoded are skipped.
func BuildDiscoveryConfigs(p *platform.Platform, prefix, haPrefix string) []DiscoveryConfig {
	var configs []DiscoveryConfig

	viaBridge := p.Connectivity() != nil
	for _, r := range p.Routers() {
		device := routerDevice(r, viaBridge)
		for _, s := range r.Sensors {
			cfg, err := buildSensorConfig(s, device, prefix, haPrefix, r.Name)
			if err == nil {
				configs = append(configs, cfg)
			}
		}
		if r.Button != nil {
			cfg, err := buildButtonConfig(r, device, prefix, haPrefix)
			if err == nil {
				configs = append(configs, cfg)
			}
		}
	}

	if c := p.Connectivity(); c != nil {
		cfg, err := buildSensorConfig(c, bridgeDevice(), prefix, haPrefix, bridgeGroup)
		if err == nil {
			configs = append(configs, cfg)
		}
	}

	return configs
}
