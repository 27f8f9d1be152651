package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/camlink/camlink-go/pkg/connection"
)

// Config holds the watcher configuration. It is read from a YAML file and
// individual fields can be overridden on the command line.
type Config struct {
	Address string `yaml:"address"`
	Channel uint8  `yaml:"channel"`

	// Debounce windows for AwaitStart / AwaitStop.
	StartHold time.Duration `yaml:"start_hold"`
	StopHold  time.Duration `yaml:"stop_hold"`

	Floodlight FloodlightConfig `yaml:"floodlight"`

	Reconnect   connection.BackoffConfig `yaml:"reconnect"`
	DialTimeout time.Duration            `yaml:"dial_timeout"`
	IdleTimeout time.Duration            `yaml:"idle_timeout"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ProtocolLog string `yaml:"protocol_log"`
	MetricsAddr string `yaml:"metrics_addr"`

	Interactive bool `yaml:"-"`
}

// FloodlightConfig switches the floodlight on while motion is active.
type FloodlightConfig struct {
	OnMotion bool   `yaml:"on_motion"`
	Duration uint16 `yaml:"duration"` // seconds
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		StartHold:   time.Second,
		StopHold:    10 * time.Second,
		Floodlight:  FloodlightConfig{Duration: 180},
		DialTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadConfig reads path and merges it over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"start_hold", c.StartHold},
		{"stop_hold", c.StopHold},
		{"dial_timeout", c.DialTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"reconnect.initial", c.Reconnect.Initial},
		{"reconnect.max", c.Reconnect.Max},
	}
	for _, d := range durations {
		if d.d < 0 {
			return fmt.Errorf("%s must not be negative (got %s)", d.name, d.d)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
