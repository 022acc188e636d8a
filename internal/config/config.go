// Package config loads the manager settings from the environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the manager. Command line flags override these values.
type Config struct {
	MetricsAddr    string `env:"GLANCE_OPERATOR_METRICS_ADDR"      envDefault:":8080"`
	ProbeAddr      string `env:"GLANCE_OPERATOR_PROBE_ADDR"        envDefault:":8081"`
	LeaderElect    bool   `env:"GLANCE_OPERATOR_LEADER_ELECT"      envDefault:"false"`
	WatchNamespace string `env:"GLANCE_OPERATOR_WATCH_NAMESPACE"`
	// PebbleSocketDir holds one directory per workload container, each with
	// its pebble.socket.
	PebbleSocketDir string        `env:"GLANCE_OPERATOR_PEBBLE_SOCKET_DIR" envDefault:"/charm/containers"`
	Container       string        `env:"GLANCE_OPERATOR_CONTAINER"         envDefault:"glance-api"`
	RequeueDelay    time.Duration `env:"GLANCE_OPERATOR_REQUEUE_DELAY"     envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RequeueDelay <= 0 {
		return Config{}, fmt.Errorf("requeue delay must be positive, got %s", cfg.RequeueDelay)
	}
	return cfg, nil
}

// PebbleSocket is the socket of the configured workload container.
func (c Config) PebbleSocket() string {
	return filepath.Join(c.PebbleSocketDir, c.Container, "pebble.socket")
}
