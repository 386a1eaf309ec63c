// Package config provides configuration types and loading for upline.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Tenant, Hierarchy, Gateway, Relay.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Tenant    TenantConfig    `json:"tenant"`
	Hierarchy HierarchyConfig `json:"hierarchy"`
	Gateway   GatewayConfig   `json:"gateway"`
	Relay     RelayConfig     `json:"relay"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// TenantConfig scopes the engine to one agency roster.
type TenantConfig struct {
	ID string `json:"id" envconfig:"TENANT_ID"`
}

// HierarchyConfig tunes the hierarchy engine.
type HierarchyConfig struct {
	// MoveLockTimeout bounds how long a reparenting call waits for the
	// structural lock before failing with busy.
	MoveLockTimeout time.Duration `json:"moveLockTimeout" envconfig:"MOVE_LOCK_TIMEOUT"`
}

// GatewayConfig configures the HTTP API server.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"GATEWAY_HOST"`
	Port      int    `json:"port" envconfig:"GATEWAY_PORT"`
	AuthToken string `json:"authToken" envconfig:"GATEWAY_AUTH_TOKEN"`
}

// RelayConfig configures the Kafka change-event relay.
type RelayConfig struct {
	Enabled bool   `json:"enabled" envconfig:"RELAY_ENABLED"`
	Brokers string `json:"brokers" envconfig:"RELAY_BROKERS"` // comma-separated
	Topic   string `json:"topic" envconfig:"RELAY_TOPIC"`
}

// Defaults returns a config with sane defaults applied.
func Defaults() Config {
	return Config{
		Tenant:    TenantConfig{ID: "default"},
		Hierarchy: HierarchyConfig{MoveLockTimeout: 5 * time.Second},
		Gateway:   GatewayConfig{Host: "127.0.0.1", Port: 8790},
		Relay:     RelayConfig{Topic: "upline.hierarchy.events"},
	}
}
