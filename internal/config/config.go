// Package config loads the run-time configuration that sits outside a
// portfolio's own portfolio.json: daemon scheduling, tag selection, and the
// optional NATS/Prometheus endpoints. Adapted from the teacher's
// internal/config/config.go (YAML file + .env-backed env expansion), rehomed
// from docbuilder's repositories/hugo/output shape to fashion's
// daemon/tags/eventbus shape.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the content of fashion.yaml, a project-external run
// configuration written by `fashion init` and consulted by `fashion daemon`.
type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Tags   []string     `yaml:"tags,omitempty"`
	NATS   NATSConfig   `yaml:"nats,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// DaemonConfig controls scheduled and watch-triggered rebuilds.
type DaemonConfig struct {
	// Interval is a gocron-compatible duration between scheduled rebuilds.
	// Zero disables scheduled rebuilds (watch-triggered only).
	Interval time.Duration `yaml:"interval,omitempty"`
	// Watch enables fsnotify-triggered rebuilds on warehouse changes.
	Watch bool `yaml:"watch,omitempty"`
	// DebounceDelay coalesces bursts of filesystem events into one rebuild.
	DebounceDelay time.Duration `yaml:"debounce_delay,omitempty"`
	Force         bool          `yaml:"force,omitempty"`
}

// NATSConfig is the optional event bus mirror.
type NATSConfig struct {
	URL    string `yaml:"url,omitempty"`
	Stream string `yaml:"stream,omitempty"`
}

// MetricsConfig is the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load reads configPath (expanding ${VAR} references against the process
// environment, after loading .env/.env.local if present) and applies
// defaults.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Daemon.DebounceDelay == 0 {
		cfg.Daemon.DebounceDelay = 2 * time.Second
	}
}

// Init writes a starter fashion.yaml. It refuses to overwrite an existing
// file unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config: already exists: %s (use --force)", configPath)
	}

	example := Config{
		Daemon: DaemonConfig{
			Interval:      10 * time.Minute,
			Watch:         true,
			DebounceDelay: 2 * time.Second,
		},
		Tags: []string{},
	}
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", configPath, err)
	}
	return nil
}

// loadEnvFile loads .env/.env.local into the process environment via
// godotenv, without overwriting variables already set. Absence of either
// file is not an error.
func loadEnvFile() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: could not load %s: %v\n", path, err)
		}
	}
}
