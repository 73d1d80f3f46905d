package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swoga/router-bridge/api"
	"github.com/swoga/router-bridge/cache"
	"github.com/swoga/router-bridge/prober"
	"go.uber.org/zap/zaptest"
)

type fakeClient struct {
	status  map[string]interface{}
	reboot  bool
	reboots int
}

func (f *fakeClient) Name() string                                    { return "r106" }
func (f *fakeClient) Protocol() api.Protocol                          { return api.ProtocolREST }
func (f *fakeClient) Login(context.Context) bool                      { return true }
func (f *fakeClient) GetStatus(context.Context) map[string]interface{} { return f.status }
func (f *fakeClient) Reboot(context.Context) bool {
	f.reboots++
	return f.reboot
}

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Check(context.Context, string) error { return f.err }

func newSource(client *fakeClient) *cache.Cache {
	return cache.New(client.GetStatus, 0)
}

func TestSafeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"r106_battery_level", "r106_battery_level"},
		{"Living Room-Router", "living_room_router"},
		{"192.168.1.1", "192_168_1_1"},
		{"__x__", "x"},
		{"", "unknown"},
		{"---", "unknown"},
	}
	for _, tt := range tests {
		if got := SafeID(tt.in); got != tt.want {
			t.Errorf("SafeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFields_BatteryOnly(t *testing.T) {
	client := &fakeClient{status: map[string]interface{}{"device_battery_level_percent": "59"}}
	source := newSource(client)

	battery := NewBattery("r106", "Router", source)
	temperature := NewBatteryTemperature("r106", "Router", source)
	battery.Update(context.Background())

	state, ok := battery.State()
	require.True(t, ok)
	assert.Equal(t, 59.0, state)
	assert.Equal(t, "%", battery.Unit())
	assert.Equal(t, "r106_battery_level", battery.ID())
	assert.Equal(t, "Router Battery Level", battery.Name())

	_, ok = temperature.State()
	assert.False(t, ok)
}

func TestFields_Projections(t *testing.T) {
	client := &fakeClient{status: map[string]interface{}{
		"device_battery_temperature": "31.5",
		"mnet_sysmode":               "LTE",
		"mnet_sig_level":             float64(4),
		"online_device_count":        float64(3),
	}}
	source := newSource(client)
	source.Refresh(context.Background())

	tests := []struct {
		sensor Sensor
		want   interface{}
	}{
		{NewBatteryTemperature("r", "R", source), 31.5},
		{NewNetworkMode("r", "R", source), "LTE"},
		{NewSignalLevel("r", "R", source), 4.0},
		{NewOnlineDevices("r", "R", source), 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.sensor.ID(), func(t *testing.T) {
			got, ok := tt.sensor.State()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFields_StaleValueSurvivesFailedPoll(t *testing.T) {
	client := &fakeClient{status: map[string]interface{}{"device_battery_level_percent": "80"}}
	source := newSource(client)
	battery := NewBattery("r106", "Router", source)

	battery.Update(context.Background())
	client.status = nil
	battery.Update(context.Background())

	state, ok := battery.State()
	require.True(t, ok)
	assert.Equal(t, 80.0, state)
}

func TestAttributes(t *testing.T) {
	client := &fakeClient{}
	source := newSource(client)
	attrs := NewAttributes("r106", "Router", source)

	state, ok := attrs.State()
	assert.True(t, ok)
	assert.Equal(t, "Unknown", state)
	assert.Empty(t, attrs.Attributes())

	client.status = map[string]interface{}{"device_uptime": "86400", "mnet_operator_name": "CMCC"}
	attrs.Update(context.Background())

	state, _ = attrs.State()
	assert.Equal(t, "86400", state)
	assert.Equal(t, map[string]interface{}{"device_uptime": "86400", "mnet_operator_name": "CMCC"}, attrs.Attributes())
}

func TestConnectivity(t *testing.T) {
	checker := &fakeChecker{}
	c := NewConnectivity(prober.NewWithChecker("https://baidu.com", prober.MethodHTTP, checker, 0, zaptest.NewLogger(t)))

	state, _ := c.State()
	assert.Equal(t, 0, state)
	assert.Nil(t, c.Attributes()["last_probe_time"])

	c.Update(context.Background())
	state, _ = c.State()
	assert.Equal(t, 1, state)
	attrs := c.Attributes()
	assert.NotNil(t, attrs["last_probe_time"])
	assert.IsType(t, float64(0), attrs["last_probe_duration"])
	assert.Nil(t, attrs["last_probe_error"])

	checker.err = errors.New("no route to host")
	c.Update(context.Background())
	state, _ = c.State()
	assert.Equal(t, 0, state)
	assert.Equal(t, "no route to host", c.Attributes()["last_probe_error"])
}

func TestRebootButton(t *testing.T) {
	client := &fakeClient{reboot: false}
	b := NewRebootButton("r106", "Router", client, zaptest.NewLogger(t))

	var _ Rebootable = b
	b.Reboot(context.Background())
	client.reboot = true
	b.Reboot(context.Background())

	assert.Equal(t, 2, client.reboots)
	assert.Equal(t, "r106_reboot", b.ID())
}
