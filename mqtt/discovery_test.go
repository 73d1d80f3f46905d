package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swoga/router-bridge/api"
	"github.com/swoga/router-bridge/platform"
	"go.uber.org/zap/zaptest"
)

func TestBuildDiscoveryConfigs(t *testing.T) {
	b, _, _, _ := newBridge(t)

	configs := BuildDiscoveryConfigs(b.currentPlatform(), "rb", "ha")

	topics := make(map[string][]byte, len(configs))
	for _, c := range configs {
		topics[c.Topic] = c.Payload
	}
	// 5 REST views, 2 RPC views, 2 buttons and the connectivity view
	assert.Len(t, configs, 10)

	var battery SensorConfig
	require.NoError(t, json.Unmarshal(topics["ha/sensor/r106_battery_level/config"], &battery))
	assert.Equal(t, "Portable Battery Level", battery.Name)
	assert.Equal(t, "router_bridge_r106_battery_level", battery.UniqueID)
	assert.Equal(t, "rb/r106/r106_battery_level/state", battery.StateTopic)
	assert.Equal(t, "%", battery.UnitOfMeasurement)
	assert.Equal(t, "battery", battery.DeviceClass)
	assert.Equal(t, "measurement", battery.StateClass)
	assert.Empty(t, battery.JSONAttributesTopic)
	assert.Equal(t, "rb/status", battery.AvailabilityTopic)
	assert.Equal(t, []string{"router_bridge_r106"}, battery.Device.Identifiers)
	assert.Equal(t, "rest", battery.Device.Model)
	assert.Equal(t, "router_bridge", battery.Device.ViaDevice)

	var attrs SensorConfig
	require.NoError(t, json.Unmarshal(topics["ha/sensor/r106_extra_attributes/config"], &attrs))
	assert.Equal(t, "rb/r106/attributes", attrs.JSONAttributesTopic)
	assert.Empty(t, attrs.StateClass)

	var mode SensorConfig
	require.NoError(t, json.Unmarshal(topics["ha/sensor/r106_network_mode/config"], &mode))
	assert.Empty(t, mode.StateClass)
	assert.Equal(t, "mdi:signal-4g", mode.Icon)

	var button ButtonConfig
	require.NoError(t, json.Unmarshal(topics["ha/button/ax1800_reboot/config"], &button))
	assert.Equal(t, "rb/ax1800/reboot/set", button.CommandTopic)
	assert.Equal(t, "PRESS", button.PayloadPress)
	assert.Equal(t, "restart", button.DeviceClass)
	assert.Equal(t, "ax1800 Reboot", button.Name)

	var connectivity SensorConfig
	require.NoError(t, json.Unmarshal(topics["ha/sensor/network_prober/config"], &connectivity))
	assert.Equal(t, "rb/bridge/network_prober/state", connectivity.StateTopic)
	assert.Equal(t, "rb/bridge/attributes", connectivity.JSONAttributesTopic)
	assert.Equal(t, []string{"router_bridge"}, connectivity.Device.Identifiers)
}

func TestBuildDiscoveryConfigs_WithoutConnectivity(t *testing.T) {
	log := zaptest.NewLogger(t)
	client := &fakeClient{name: "r106", protocol: api.ProtocolREST}
	p, err := platform.New([]*platform.Router{platform.NewRouter("Portable", client, 0, log)}, nil, log)
	require.NoError(t, err)

	configs := BuildDiscoveryConfigs(p, "rb", "ha")
	require.Len(t, configs, 6)

	for _, c := range configs {
		var payload struct {
			Device HADevice `json:"device"`
		}
		require.NoError(t, json.Unmarshal(c.Payload, &payload))
		assert.Empty(t, payload.Device.ViaDevice, c.Topic)
		assert.Equal(t, []string{"router_bridge_r106"}, payload.Device.Identifiers, c.Topic)
	}
}
