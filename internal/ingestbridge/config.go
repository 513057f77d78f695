package ingestbridge

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings like "10s"
// as well as bare integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config defines MQTT bridge configuration. The bridge is disabled when no
// broker URL is set.
type Config struct {
	BrokerURL          string   `yaml:"broker_url"`
	ClientID           string   `yaml:"client_id"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	QoS                byte     `yaml:"qos"`
	VehicleTopic       string   `yaml:"vehicle_topic"`
	EnvironmentalTopic string   `yaml:"environmental_topic"`
	ConnectTimeout     Duration `yaml:"connect_timeout"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.BrokerURL != "" }

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		BrokerURL:          os.Getenv("BRIDGE_BROKER_URL"),
		ClientID:           getenvDefault("BRIDGE_CLIENT_ID", "deepsea-ingest-bridge"),
		Username:           os.Getenv("BRIDGE_USERNAME"),
		Password:           os.Getenv("BRIDGE_PASSWORD"),
		VehicleTopic:       getenvDefault("BRIDGE_VEHICLE_TOPIC", "auv/+/vehicle-state"),
		EnvironmentalTopic: getenvDefault("BRIDGE_ENVIRONMENTAL_TOPIC", "auv/+/environmental"),
		ConnectTimeout:     Duration(10 * time.Second),
	}

	if path := os.Getenv("BRIDGE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "deepsea-ingest-bridge"
	}
	if cfg.VehicleTopic == "" {
		cfg.VehicleTopic = "auv/+/vehicle-state"
	}
	if cfg.EnvironmentalTopic == "" {
		cfg.EnvironmentalTopic = "auv/+/environmental"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = Duration(10 * time.Second)
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
