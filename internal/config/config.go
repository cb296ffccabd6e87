package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vcscsvcscs/healthlayer/internal/security"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Health   HealthConfig
	Bridge   BridgeConfig
	Database DatabaseConfig
	Azure    AzureConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// HealthConfig selects the platform and the time zone used for day and hour buckets
type HealthConfig struct {
	Platform string // android or ios
	Timezone string // IANA name, "Local" for the host zone
}

// BridgeConfig points at the companion app exposing the phone's health SDK
type BridgeConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig holds database connection configuration. An empty URL
// disables the audit trail.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage StorageConfig
}

// StorageConfig holds Azure Blob Storage configuration. Reports are
// disabled when no credentials are set.
type StorageConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	BlobEndpoint     string
	ReportContainer  string
}

// Enabled reports whether any storage credentials were configured
func (s StorageConfig) Enabled() bool {
	return s.ConnectionString != "" || (s.AccountName != "" && s.AccountKey != "")
}

// SecurityConfig holds the optional report encryption key, base64 encoded.
// Reports are stored unencrypted when it is empty.
type SecurityConfig struct {
	ReportKey string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	v.SetDefault("health.platform", "android")
	v.SetDefault("health.timezone", "Local")

	v.SetDefault("bridge.url", "http://127.0.0.1:8765")
	v.SetDefault("bridge.timeout", 30*time.Second)

	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	v.SetDefault("azure.storage.reportcontainer", "health-reports")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Health layer
	v.BindEnv("health.platform", "HEALTH_PLATFORM")
	v.BindEnv("health.timezone", "HEALTH_TIMEZONE", "TZ")
	v.BindEnv("bridge.url", "BRIDGE_URL")
	v.BindEnv("bridge.timeout", "BRIDGE_TIMEOUT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.connectionstring", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("azure.storage.blobendpoint", "AZURE_STORAGE_BLOB_ENDPOINT")
	v.BindEnv("azure.storage.reportcontainer", "AZURE_STORAGE_REPORT_CONTAINER")

	// Security
	v.BindEnv("security.reportkey", "REPORT_ENCRYPTION_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Health.Platform) {
	case "android", "ios":
	default:
		return fmt.Errorf("health.platform must be android or ios, got %q", c.Health.Platform)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Bridge.URL == "" {
		return fmt.Errorf("bridge.url is required")
	}

	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge.timeout must be positive")
	}

	if c.Azure.Storage.AccountName != "" && c.Azure.Storage.AccountKey == "" && c.Azure.Storage.ConnectionString == "" {
		return fmt.Errorf("azure storage credentials are incomplete (account name without key)")
	}

	if c.Security.ReportKey != "" {
		if _, err := security.ParseKey(c.Security.ReportKey); err != nil {
			return fmt.Errorf("security.reportkey: %w", err)
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// Location resolves the configured bucketing time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Health.Timezone == "" || c.Health.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Health.Timezone)
	if err != nil {
		return nil, fmt.Errorf("health.timezone %q: %w", c.Health.Timezone, err)
	}
	return loc, nil
}
