// Package config loads promptrelay's runtime configuration from an
// optional YAML file plus environment variable overrides, using a single
// typed Config struct populated by explicit field-by-field precedence
// rather than a generic settings map.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cuemby/promptrelay/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the complete set of broker tunables plus the ambient
// server/logging settings every component needs at startup.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	MaxQueueSize      int           `yaml:"max_queue_size"`
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`

	LogLevel  log.Level `yaml:"log_level"`
	LogJSON   bool      `yaml:"log_json"`
	MetricsOn bool      `yaml:"metrics_enabled"`
}

// Default returns an unauthenticated single-process broker's defaults:
// listening on :8080, a 1000-message queue, a 60s processing budget, and
// 30s SSE keepalives.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		MaxQueueSize:      1000,
		ProcessingTimeout: 60 * time.Second,
		KeepaliveInterval: 30 * time.Second,
		LogLevel:          log.InfoLevel,
		LogJSON:           true,
		MetricsOn:         true,
	}
}

// Load builds a Config starting from Default(), applying path's YAML
// contents if path is non-empty, then applying environment variable
// overrides — env always wins, so an operator can override a single value
// at deploy time without forking the config file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("HOST"); ok {
		cfg.Host = v
	}
	if v, ok := envInt("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := envInt("MAX_QUEUE_SIZE"); ok {
		cfg.MaxQueueSize = v
	}
	if v, ok := envDuration("PROCESSING_TIMEOUT"); ok {
		cfg.ProcessingTimeout = v
	}
	if v, ok := envDuration("KEEPALIVE_INTERVAL"); ok {
		cfg.KeepaliveInterval = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = log.Level(v)
	}
	if v, ok := envBool("LOG_JSON"); ok {
		cfg.LogJSON = v
	}
	if v, ok := envBool("METRICS_ENABLED"); ok {
		cfg.MetricsOn = v
	}
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(name string) (time.Duration, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	// A bare integer is interpreted as whole seconds; a value with a Go
	// duration suffix ("90s", "2m") is also accepted.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Addr returns the host:port string to listen on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
