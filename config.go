package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind            string            `yaml:"bind"`
	Port            int               `yaml:"port"`
	Token           string            `yaml:"token"`
	LogLevel        string            `yaml:"log_level"`
	PollInterval    time.Duration     `yaml:"poll_interval"`
	AssemblyTimeout time.Duration     `yaml:"assembly_timeout"`
	Temperature     TemperatureConfig `yaml:"temperature"`
}

type TemperatureConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ThermalZone    string        `yaml:"thermal_zone"`
	Sudo           bool          `yaml:"sudo"`
	Disable        bool          `yaml:"disable"`
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".system-stats", "agent.yaml")
}

func defaultConfig() *Config {
	return &Config{
		Bind:            "127.0.0.1",
		Port:            3000,
		LogLevel:        "info",
		PollInterval:    5 * time.Second,
		AssemblyTimeout: 750 * time.Millisecond,
		Temperature: TemperatureConfig{
			CommandTimeout: 500 * time.Millisecond,
			ThermalZone:    "/sys/class/thermal/thermal_zone0/temp",
			Sudo:           true,
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.AssemblyTimeout < 0 || c.Temperature.CommandTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
