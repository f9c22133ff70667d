package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Controller ControllerConfig `yaml:"controller"`
	Relays     RelayConfig      `yaml:"relays"`
	UI         UIConfig         `yaml:"ui"`

	// ConfigPath is the path the config was loaded from (not serialized)
	ConfigPath string `yaml:"-"`
}

// ServerConfig represents the local HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ControllerConfig represents the printer controller connection
type ControllerConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RelayConfig represents the relay plugin exposed by the controller
type RelayConfig struct {
	Plugin string `yaml:"plugin"`
}

// UIConfig represents dashboard-facing buffer sizes
type UIConfig struct {
	LogLines       int `yaml:"log_lines"`
	CommandHistory int `yaml:"command_history"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "0.0.0.0",
		},
		Controller: ControllerConfig{
			Endpoint:     "http://127.0.0.1:5000",
			Timeout:      15 * time.Second,
			PollInterval: 3 * time.Second,
		},
		Relays: RelayConfig{
			Plugin: "relay_controller",
		},
		UI: UIConfig{
			LogLines:       500,
			CommandHistory: 50,
		},
	}
}

// Load loads configuration from the first config file found
// in the common locations.
func Load() (*Config, error) {
	configPaths := []string{
		"config.yaml",
		"configs/config.yaml",
		"/etc/resinportal/config.yaml",
	}

	var err error
	for _, path := range configPaths {
		var cfg *Config
		cfg, err = LoadFile(path)
		if err == nil {
			return cfg, nil
		}
	}
	return nil, err
}

// LoadFile loads configuration from a specific file, layered over defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ConfigPath = path
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
