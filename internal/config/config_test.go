package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"COMMS_URL", "SERVICE_NAME",
	"BRIDGE_CHANNEL", "BRIDGE_SUBJECT_PREFIX", "BRIDGE_CODEC",
	"EVENTS_SUBJECT_PREFIX", "NATIVE_SUBJECT_PREFIX",
	"PROVIDER", "PROVIDER_TIMEOUT", "SDK_VERSION_CONSTRAINT", "REQUEST_TIMEOUT",
	"DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"HTTP_PORT", "HEALTH_CHECK_TIMEOUT",
	"KEYRING_SERVICE", "SANDBOX_DISPLAY_NAME", "SANDBOX_MAX_PHOTO_BYTES", "SANDBOX_MAX_VIDEO_BYTES",
	"LOG_LEVEL",
}

func clearEnv() {
	for _, env := range configEnvVars {
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://127.0.0.1:4222" {
		t.Errorf("config:config_test - COMMSURL = %q, want %q", cfg.COMMSURL, "nats://127.0.0.1:4222")
	}
	if cfg.COMMSName != "snapkit-bridge" {
		t.Errorf("config:config_test - COMMSName = %q, want %q", cfg.COMMSName, "snapkit-bridge")
	}
	if cfg.BridgeChannel != "snapkit" || cfg.BridgeSubjectPrefix != "snapkit.bridge" {
		t.Errorf("config:config_test - bridge = %q/%q, unexpected default", cfg.BridgeSubjectPrefix, cfg.BridgeChannel)
	}
	if cfg.BridgeCodec != "json" {
		t.Errorf("config:config_test - BridgeCodec = %q, want json", cfg.BridgeCodec)
	}
	if cfg.EventsSubjectPrefix != "snapkit.events" || cfg.NativeSubjectPrefix != "snapkit.native" {
		t.Errorf("config:config_test - prefixes = %q/%q, unexpected default", cfg.EventsSubjectPrefix, cfg.NativeSubjectPrefix)
	}
	if cfg.Provider != ProviderSandbox {
		t.Errorf("config:config_test - Provider = %q, want %q", cfg.Provider, ProviderSandbox)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("config:config_test - ProviderTimeout = %v, want 30s", cfg.ProviderTimeout)
	}
	if cfg.SDKVersionConstraint != "" {
		t.Errorf("config:config_test - SDKVersionConstraint = %q, want empty", cfg.SDKVersionConstraint)
	}
	if cfg.RequestTimeout != 25*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 25s", cfg.RequestTimeout)
	}
	if cfg.DatabaseURL != "" || cfg.LedgerEnabled() {
		t.Errorf("config:config_test - DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=false by default")
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q, want %q", cfg.MigrationPath, "migrations")
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("config:config_test - HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 5s", cfg.HealthCheckTimeout)
	}
	if cfg.KeyringService != "snapkit-bridge" || cfg.SandboxDisplayName != "Sandbox User" {
		t.Errorf("config:config_test - sandbox identity = %q/%q, unexpected default", cfg.KeyringService, cfg.SandboxDisplayName)
	}
	if cfg.SandboxMaxPhotoBytes != 15<<20 || cfg.SandboxMaxVideoBytes != 300<<20 {
		t.Errorf("config:config_test - sandbox limits = %d/%d, unexpected default", cfg.SandboxMaxPhotoBytes, cfg.SandboxMaxVideoBytes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("config:config_test - defaults should validate for serve: %v", err)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv()
	overrides := map[string]string{
		"COMMS_URL":               "nats://custom:4222",
		"SERVICE_NAME":            "test-bridge",
		"BRIDGE_CHANNEL":          "snapkit_v2",
		"BRIDGE_SUBJECT_PREFIX":   "app.bridge",
		"BRIDGE_CODEC":            " CBOR ",
		"EVENTS_SUBJECT_PREFIX":   "app.events",
		"NATIVE_SUBJECT_PREFIX":   "app.native",
		"PROVIDER":                "Remote",
		"PROVIDER_TIMEOUT":        "5s",
		"SDK_VERSION_CONSTRAINT":  "^2.0.0",
		"REQUEST_TIMEOUT":         "10s",
		"DATABASE_URL":            "postgres://test@localhost/test",
		"RUN_MIGRATIONS":          "true",
		"MIGRATION_PATH":          "/tmp/migrations",
		"HTTP_PORT":               "9090",
		"HEALTH_CHECK_TIMEOUT":    "10s",
		"KEYRING_SERVICE":         "svc",
		"SANDBOX_DISPLAY_NAME":    "Tester",
		"SANDBOX_MAX_PHOTO_BYTES": "1024",
		"SANDBOX_MAX_VIDEO_BYTES": "2048",
		"LOG_LEVEL":               "debug",
	}
	for key, val := range overrides {
		os.Setenv(key, val)
	}
	defer clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://custom:4222" || cfg.COMMSName != "test-bridge" {
		t.Errorf("config:config_test - comms = %q/%q", cfg.COMMSURL, cfg.COMMSName)
	}
	if cfg.BridgeChannel != "snapkit_v2" || cfg.BridgeSubjectPrefix != "app.bridge" {
		t.Errorf("config:config_test - bridge = %q/%q", cfg.BridgeSubjectPrefix, cfg.BridgeChannel)
	}
	if cfg.BridgeCodec != "cbor" {
		t.Errorf("config:config_test - BridgeCodec = %q, want cbor", cfg.BridgeCodec)
	}
	if cfg.EventsSubjectPrefix != "app.events" || cfg.NativeSubjectPrefix != "app.native" {
		t.Errorf("config:config_test - prefixes = %q/%q", cfg.EventsSubjectPrefix, cfg.NativeSubjectPrefix)
	}
	if cfg.Provider != ProviderRemote {
		t.Errorf("config:config_test - Provider = %q, want %q", cfg.Provider, ProviderRemote)
	}
	if cfg.ProviderTimeout != 5*time.Second || cfg.RequestTimeout != 10*time.Second {
		t.Errorf("config:config_test - timeouts = %v/%v", cfg.ProviderTimeout, cfg.RequestTimeout)
	}
	if cfg.SDKVersionConstraint != "^2.0.0" {
		t.Errorf("config:config_test - SDKVersionConstraint = %q", cfg.SDKVersionConstraint)
	}
	if !cfg.LedgerEnabled() || !cfg.RunMigrations || cfg.MigrationPath != "/tmp/migrations" {
		t.Errorf("config:config_test - database = %q/%v/%q", cfg.DatabaseURL, cfg.RunMigrations, cfg.MigrationPath)
	}
	if cfg.HTTPPort != 9090 || cfg.HealthCheckTimeout != 10*time.Second {
		t.Errorf("config:config_test - http = %d/%v", cfg.HTTPPort, cfg.HealthCheckTimeout)
	}
	if cfg.KeyringService != "svc" || cfg.SandboxDisplayName != "Tester" {
		t.Errorf("config:config_test - sandbox identity = %q/%q", cfg.KeyringService, cfg.SandboxDisplayName)
	}
	if cfg.SandboxMaxPhotoBytes != 1024 || cfg.SandboxMaxVideoBytes != 2048 {
		t.Errorf("config:config_test - sandbox limits = %d/%d", cfg.SandboxMaxPhotoBytes, cfg.SandboxMaxVideoBytes)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	clearEnv()
	os.Setenv("PROVIDER_TIMEOUT", "soon")
	defer clearEnv()

	if _, err := LoadConfig(); err == nil {
		t.Error("config:config_test - expected error for invalid PROVIDER_TIMEOUT")
	}
}

func TestLoadConfig_LogLevels(t *testing.T) {
	clearEnv()
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		os.Setenv("LOG_LEVEL", level)
		cfg, err := LoadConfig()
		os.Unsetenv("LOG_LEVEL")

		if err != nil {
			t.Fatalf("config:config_test - unexpected error for level %q: %v", level, err)
		}
		if cfg.LogLevel != level {
			t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, level)
		}
	}
}

func validConfig() *Config {
	return &Config{
		BridgeChannel:        "snapkit",
		BridgeSubjectPrefix:  "snapkit.bridge",
		BridgeCodec:          "json",
		Provider:             ProviderSandbox,
		ProviderTimeout:      30 * time.Second,
		RequestTimeout:       25 * time.Second,
		HealthCheckTimeout:   5 * time.Second,
		SandboxMaxPhotoBytes: 1,
		SandboxMaxVideoBytes: 1,
	}
}

func TestValidateForServe(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid sandbox", mutate: func(*Config) {}},
		{name: "valid remote", mutate: func(c *Config) { c.Provider = ProviderRemote }},
		{name: "missing channel", mutate: func(c *Config) { c.BridgeChannel = "" }, wantErr: "BRIDGE_CHANNEL"},
		{name: "missing prefix", mutate: func(c *Config) { c.BridgeSubjectPrefix = "" }, wantErr: "BRIDGE_SUBJECT_PREFIX"},
		{name: "unknown codec", mutate: func(c *Config) { c.BridgeCodec = "xml" }, wantErr: "BRIDGE_CODEC"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "ios" }, wantErr: "PROVIDER must be"},
		{name: "remote without timeout", mutate: func(c *Config) {
			c.Provider = ProviderRemote
			c.ProviderTimeout = 0
		}, wantErr: "PROVIDER_TIMEOUT"},
		{name: "sandbox zero limit", mutate: func(c *Config) { c.SandboxMaxVideoBytes = 0 }, wantErr: "SANDBOX_MAX"},
		{name: "zero request timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: "REQUEST_TIMEOUT"},
		{name: "zero health timeout", mutate: func(c *Config) { c.HealthCheckTimeout = 0 }, wantErr: "HEALTH_CHECK_TIMEOUT"},
		{name: "migrations without database", mutate: func(c *Config) { c.RunMigrations = true }, wantErr: "RUN_MIGRATIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.ValidateForServe()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("config:config_test - unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("config:config_test - err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForDB(t *testing.T) {
	c := validConfig()
	if err := c.ValidateForDB(); err == nil {
		t.Error("config:config_test - expected error without DATABASE_URL")
	}
	c.DatabaseURL = "postgres://localhost/snapkit"
	if err := c.ValidateForDB(); err != nil {
		t.Errorf("config:config_test - unexpected error: %v", err)
	}
}
