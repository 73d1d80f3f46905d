package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

var (
	configReloadSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "router_bridge",
		Name:      "config_last_reload_successful",
		Help:      "Router bridge config loaded successfully.",
	})

	configReloadSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "router_bridge",
		Name:      "config_last_reload_success_timestamp_seconds",
		Help:      "Timestamp of the last successful configuration reload.",
	})
)

func init() {
	prometheus.MustRegister(configReloadSuccess)
	prometheus.MustRegister(configReloadSeconds)
}

type SafeConfig struct {
	sync.RWMutex
	configFile string
	c          *Config
}

func (sc *SafeConfig) Get() *Config {
	sc.RLock()
	defer sc.RUnlock()
	return sc.c
}

func New(configFile string) *SafeConfig {
	c := DefaultConfig()
	return &SafeConfig{
		c:          &c,
		configFile: configFile,
	}
}

// LoadConfig reads and validates the config file. The active config is only
// replaced when the new one is valid.
func (sc *SafeConfig) LoadConfig() (err error) {
	defer func() {
		if err != nil {
			configReloadSuccess.Set(0)
		} else {
			configReloadSuccess.Set(1)
			configReloadSeconds.SetToCurrentTime()
		}
	}()

	c, err := Load(sc.configFile)
	if err != nil {
		return err
	}

	sc.Lock()
	sc.c = c
	defer sc.Unlock()

	return nil
}

// Load decodes and validates a single config file.
func Load(configFile string) (*Config, error) {
	c := DefaultConfig()

	yamlReader, err := os.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %s", err)
	}
	defer yamlReader.Close()
	decoder := yaml.NewDecoder(yamlReader)
	decoder.KnownFields(true)

	err = decoder.Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %s", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config file: %s", err)
	}

	return &c, nil
}
