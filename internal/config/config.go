// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Provider names accepted by PROVIDER.
const (
	ProviderRemote  = "remote"
	ProviderSandbox = "sandbox"
)

// Config holds snapkit-bridge configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"snapkit-bridge"`

	// Bridge channel: subject is <BridgeSubjectPrefix>.<BridgeChannel>.
	BridgeChannel       string `envconfig:"BRIDGE_CHANNEL" default:"snapkit"`
	BridgeSubjectPrefix string `envconfig:"BRIDGE_SUBJECT_PREFIX" default:"snapkit.bridge"`
	BridgeCodec         string `envconfig:"BRIDGE_CODEC" default:"json"`
	EventsSubjectPrefix string `envconfig:"EVENTS_SUBJECT_PREFIX" default:"snapkit.events"`
	NativeSubjectPrefix string `envconfig:"NATIVE_SUBJECT_PREFIX" default:"snapkit.native"`

	// Provider
	Provider             string        `envconfig:"PROVIDER" default:"sandbox"`
	ProviderTimeout      time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	SDKVersionConstraint string        `envconfig:"SDK_VERSION_CONSTRAINT"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`

	// Database (optional for serve; enables the share/verification ledger)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Sandbox provider
	KeyringService       string `envconfig:"KEYRING_SERVICE" default:"snapkit-bridge"`
	SandboxDisplayName   string `envconfig:"SANDBOX_DISPLAY_NAME" default:"Sandbox User"`
	SandboxMaxPhotoBytes int64  `envconfig:"SANDBOX_MAX_PHOTO_BYTES" default:"15728640"`
	SandboxMaxVideoBytes int64  `envconfig:"SANDBOX_MAX_VIDEO_BYTES" default:"314572800"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.BridgeCodec = strings.ToLower(strings.TrimSpace(c.BridgeCodec))
	return &c, nil
}

// ValidateForServe checks required config when running the bridge server.
func (c *Config) ValidateForServe() error {
	if c.BridgeChannel == "" {
		return fmt.Errorf("%s - BRIDGE_CHANNEL is required for serve", logPrefix)
	}
	if c.BridgeSubjectPrefix == "" {
		return fmt.Errorf("%s - BRIDGE_SUBJECT_PREFIX is required for serve", logPrefix)
	}
	switch c.BridgeCodec {
	case "json", "cbor":
	default:
		return fmt.Errorf("%s - BRIDGE_CODEC must be json or cbor, got %q", logPrefix, c.BridgeCodec)
	}
	switch c.Provider {
	case ProviderRemote:
		if c.ProviderTimeout <= 0 {
			return fmt.Errorf("%s - PROVIDER_TIMEOUT must be positive", logPrefix)
		}
	case ProviderSandbox:
		if c.SandboxMaxPhotoBytes <= 0 || c.SandboxMaxVideoBytes <= 0 {
			return fmt.Errorf("%s - SANDBOX_MAX_PHOTO_BYTES and SANDBOX_MAX_VIDEO_BYTES must be positive", logPrefix)
		}
	default:
		return fmt.Errorf("%s - PROVIDER must be %s or %s, got %q", logPrefix, ProviderRemote, ProviderSandbox, c.Provider)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// LedgerEnabled reports whether serve should open the share/verification ledger.
func (c *Config) LedgerEnabled() bool {
	return c.DatabaseURL != ""
}
