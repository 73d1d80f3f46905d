// Package mqtt mirrors the platform onto an MQTT broker: Home Assistant
// discovery, sensor states and reboot commands.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/swoga/router-bridge/config"
	"github.com/swoga/router-bridge/platform"
	"github.com/swoga/router-bridge/sensor"
	"go.uber.org/zap"
)

// publisher is the part of the paho client the bridge publishes through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// RebootRequest is the payload of the reboot service topic.
type RebootRequest struct {
	EntityID string `json:"entity_id"`
}

type Bridge struct {
	cfg    config.MQTT
	log    *zap.Logger
	client pahomqtt.Client

	mu       sync.RWMutex
	pub      publisher
	platform *platform.Platform
}

// New returns a bridge for p. Nothing is sent before Start.
func New(cfg config.MQTT, p *platform.Platform, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultMQTT().Timeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "router_bridge_" + uuid.NewString()[:8]
	}
	return &Bridge{
		cfg:      cfg,
		log:      log.With(zap.String("component", "mqtt")),
		platform: p,
	}
}

// Enabled reports whether a broker is configured.
func (b *Bridge) Enabled() bool {
	return b.cfg.BrokerURL != ""
}

// Start connects to the broker. Without a broker it is a no-op. A failed
// first connection is retried in the background.
func (b *Bridge) Start() {
	if !b.Enabled() {
		b.log.Info("mqtt disabled, no broker configured")
		return
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(b.cfg.Timeout).
		SetWill(availabilityTopic(b.cfg.TopicPrefix), payloadOffline, b.cfg.QoS, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.log.Warn("mqtt connection lost", zap.Error(err))
		})

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.mu.Lock()
	b.client = client
	b.pub = client
	b.mu.Unlock()

	token := client.Connect()
	switch {
	case !token.WaitTimeout(b.cfg.Timeout):
		b.log.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		b.log.Warn("mqtt connection failed; will reconnect in background", zap.Error(token.Error()))
	default:
		b.log.Info("mqtt connected to broker", zap.String("broker_url", b.cfg.BrokerURL))
	}
}

// Stop marks the bridge offline and disconnects.
func (b *Bridge) Stop() {
	b.mu.RLock()
	client := b.client
	b.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return
	}
	b.publish(availabilityTopic(b.cfg.TopicPrefix), true, payloadOffline)
	client.Disconnect(250)
	b.log.Info("mqtt disconnected")
}

// SetPlatform swaps the platform after a config reload and announces its
// entities.
func (b *Bridge) SetPlatform(p *platform.Platform) {
	b.mu.Lock()
	b.platform = p
	b.mu.Unlock()

	if b.connected() {
		b.publishDiscovery()
	}
}

func (b *Bridge) currentPlatform() *platform.Platform {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.platform
}

func (b *Bridge) connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pub == nil {
		return false
	}
	if b.client != nil {
		return b.client.IsConnected()
	}
	return true
}

func (b *Bridge) onConnect(client pahomqtt.Client) {
	b.log.Debug("mqtt session established")
	b.publish(availabilityTopic(b.cfg.TopicPrefix), true, payloadOnline)
	b.publishDiscovery()

	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		// reboots block for the duration of a login, keep the paho router free
		go b.handleCommand(context.Background(), msg.Topic(), msg.Payload())
	}
	filters := map[string]byte{
		b.cfg.TopicPrefix + "/+/reboot/set": b.cfg.QoS,
		serviceTopic(b.cfg.TopicPrefix):     b.cfg.QoS,
	}
	token := client.SubscribeMultiple(filters, handler)
	if !token.WaitTimeout(b.cfg.Timeout) {
		b.log.Warn("mqtt subscribe timed out")
		return
	}
	if token.Error() != nil {
		b.log.Warn("mqtt subscribe failed", zap.Error(token.Error()))
	}
}

func (b *Bridge) publishDiscovery() {
	if !b.cfg.HADiscovery {
		return
	}
	p := b.currentPlatform()
	if p == nil {
		return
	}
	for _, cfg := range BuildDiscoveryConfigs(p, b.cfg.TopicPrefix, b.cfg.HADiscoveryPrefix) {
		// discovery configs are always retained so HA picks them up on restart
		b.publish(cfg.Topic, true, cfg.Payload)
	}
}

// PublishStates sends the current state of every sensor and the attribute
// sets. It only reads cached values.
func (b *Bridge) PublishStates(_ context.Context) {
	if !b.connected() {
		return
	}
	p := b.currentPlatform()
	if p == nil {
		return
	}

	prefix := b.cfg.TopicPrefix
	for _, r := range p.Routers() {
		for _, s := range r.Sensors {
			b.publishSensor(s, prefix, r.Name)
		}
	}
	if c := p.Connectivity(); c != nil {
		b.publishSensor(c, prefix, bridgeGroup)
	}
}

func (b *Bridge) publishSensor(s sensor.Sensor, prefix, group string) {
	state, ok := s.State()
	payload := payloadNone
	if ok {
		payload = formatState(state)
	}
	b.publish(stateTopic(prefix, group, s.ID()), b.cfg.Retain, payload)

	if a, ok := s.(sensor.Attributer); ok {
		data, err := json.Marshal(a.Attributes())
		if err != nil {
			b.log.Warn("failed to marshal attributes", zap.String("entity_id", s.ID()), zap.Error(err))
			return
		}
		b.publish(attributesTopic(prefix, group), b.cfg.Retain, data)
	}
}

func (b *Bridge) publish(topic string, retain bool, payload interface{}) {
	b.mu.RLock()
	pub := b.pub
	b.mu.RUnlock()
	if pub == nil {
		return
	}

	token := pub.Publish(topic, b.cfg.QoS, retain, payload)
	if !token.WaitTimeout(b.cfg.Timeout) {
		b.log.Warn("mqtt publish timed out", zap.String("topic", topic))
		return
	}
	if token.Error() != nil {
		b.log.Warn("mqtt publish failed", zap.String("topic", topic), zap.Error(token.Error()))
		return
	}
	b.log.Debug("mqtt published", zap.String("topic", topic))
}

// handleCommand dispatches a message from one of the command topics.
func (b *Bridge) handleCommand(ctx context.Context, topic string, payload []byte) {
	p := b.currentPlatform()
	if p == nil {
		return
	}
	log := b.log.With(zap.String("topic", topic))

	if topic == serviceTopic(b.cfg.TopicPrefix) {
		var req RebootRequest
		if len(strings.TrimSpace(string(payload))) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				log.Warn("invalid reboot request", zap.Error(err))
				return
			}
		}
		if err := p.Reboot(ctx, req.EntityID); err != nil {
			log.Warn("reboot request rejected", zap.Error(err))
		}
		return
	}

	router, ok := routerFromCommandTopic(b.cfg.TopicPrefix, topic)
	if !ok {
		log.Debug("ignoring message on unknown topic")
		return
	}
	r, ok := p.Router(router)
	if !ok || r.Button == nil {
		log.Warn("reboot command for unknown router", zap.String("router", router))
		return
	}
	r.Button.Reboot(ctx)
}

func routerFromCommandTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	router, ok := strings.CutSuffix(rest, "/reboot/set")
	if !ok || router == "" || strings.Contains(router, "/") {
		return "", false
	}
	return router, true
}

func formatState(state interface{}) string {
	switch v := state.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
