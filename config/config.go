package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/swoga/router-bridge/api"
	"github.com/swoga/router-bridge/prober"
)

type Config struct {
	Listen         string             `yaml:"listen"`
	ProbePath      string             `yaml:"probe_path"`
	MetricsPath    string             `yaml:"metrics_path"`
	Timeout        float64            `yaml:"timeout"`
	ScanInterval   time.Duration      `yaml:"scan_interval"`
	RequestTimeout time.Duration      `yaml:"request_timeout"`
	Routers        map[string]*Router `yaml:"routers"`
	Global         Global             `yaml:"global"`
	Prober         Prober             `yaml:"prober"`
	MQTT           MQTT               `yaml:"mqtt"`
	HTTP           HTTP               `yaml:"http"`
	Logging        Logging            `yaml:"logging"`
}

func DefaultConfig() Config {
	return Config{
		Listen:         ":9778",
		ProbePath:      "/probe",
		MetricsPath:    "/metrics",
		Timeout:        30,
		ScanInterval:   time.Minute,
		RequestTimeout: api.DefaultTimeout,
		Prober:         DefaultProber(),
		MQTT:           DefaultMQTT(),
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = DefaultConfig()

	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	for _, router := range c.Routers {
		if router == nil {
			continue
		}
		if router.Username == nil {
			router.Username = &c.Global.Username
		}
		if router.Password == nil {
			router.Password = &c.Global.Password
		}
		if router.InsecureSkipVerify == nil {
			router.InsecureSkipVerify = &c.Global.InsecureSkipVerify
		}
	}

	return nil
}

// Validate checks the fields the YAML decoder cannot.
func (c *Config) Validate() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be positive")
	}
	for _, name := range c.RouterNames() {
		router := c.Routers[name]
		if router == nil {
			return fmt.Errorf("router %q: empty definition", name)
		}
		// reserved probe target of the connectivity prober
		if name == "connectivity" {
			return fmt.Errorf("router %q: name is reserved", name)
		}
		if router.Address == "" {
			return fmt.Errorf("router %q: address missing", name)
		}
		if _, err := api.ParseProtocol(router.Protocol); err != nil {
			return fmt.Errorf("router %q: %w", name, err)
		}
	}
	switch prober.Method(c.Prober.Method) {
	case prober.MethodHTTP, prober.MethodICMP:
	default:
		return fmt.Errorf("prober: unsupported method %q", c.Prober.Method)
	}
	return nil
}

// RouterNames returns the configured router names in stable order.
func (c *Config) RouterNames() []string {
	names := make([]string, 0, len(c.Routers))
	for name := range c.Routers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Global struct {
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type Router struct {
	Address            string  `yaml:"address"`
	Protocol           string  `yaml:"protocol"`
	Title              string  `yaml:"title"`
	Username           *string `yaml:"username"`
	Password           *string `yaml:"password"`
	InsecureSkipVerify *bool   `yaml:"insecure_skip_verify"`
}

// ClientOptions converts the router definition for the api package.
func (r *Router) ClientOptions(timeout time.Duration) api.Options {
	opts := api.Options{
		Address: r.Address,
		Timeout: timeout,
	}
	if r.Username != nil {
		opts.Username = *r.Username
	}
	if r.Password != nil {
		opts.Password = *r.Password
	}
	if r.InsecureSkipVerify != nil {
		opts.InsecureSkipVerify = *r.InsecureSkipVerify
	}
	return opts
}

type Prober struct {
	Enabled    bool          `yaml:"enabled"`
	TestURL    string        `yaml:"test_url"`
	Method     string        `yaml:"method"`
	Timeout    time.Duration `yaml:"timeout"`
	Privileged bool          `yaml:"privileged"`
}

func DefaultProber() Prober {
	return Prober{
		Enabled: true,
		TestURL: "baidu.com",
		Method:  string(prober.MethodHTTP),
		Timeout: prober.DefaultTimeout,
	}
}

func (p *Prober) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*p = DefaultProber()

	type plain Prober
	return unmarshal((*plain)(p))
}

type MQTT struct {
	BrokerURL         string        `yaml:"broker_url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	ClientID          string        `yaml:"client_id"`
	TopicPrefix       string        `yaml:"topic_prefix"`
	QoS               byte          `yaml:"qos"`
	Retain            bool          `yaml:"retain"`
	Timeout           time.Duration `yaml:"timeout"`
	HADiscovery       bool          `yaml:"ha_discovery"`
	HADiscoveryPrefix string        `yaml:"ha_discovery_prefix"`
}

func DefaultMQTT() MQTT {
	return MQTT{
		TopicPrefix:       "router_bridge",
		QoS:               1,
		Retain:            true,
		Timeout:           10 * time.Second,
		HADiscovery:       true,
		HADiscoveryPrefix: "homeassistant",
	}
}

func (m *MQTT) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*m = DefaultMQTT()

	type plain MQTT
	return unmarshal((*plain)(m))
}

type HTTP struct {
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
