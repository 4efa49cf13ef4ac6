// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Credentials configuration
	Credentials CredentialsConfig `json:"credentials" mapstructure:"credentials"`

	// Orchestrator tunables
	Orchestrator OrchestratorConfig `json:"orchestrator" mapstructure:"orchestrator"`

	// Storage configuration for credential health persistence
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeoutSeconds is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeoutSeconds is the maximum duration before timing out response writes.
	// Conversions can take a while, so this defaults well above the read timeout.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds is how long to wait for active conversions on shutdown.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`

	// MaxUploadMB caps the multipart request body size.
	MaxUploadMB int `json:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// CredentialEntry is one configured provider credential.
type CredentialEntry struct {
	// Provider names the conversion service this credential belongs to.
	Provider string `json:"provider" mapstructure:"provider"`

	// Secret is the raw API key. Never logged.
	Secret string `json:"-" mapstructure:"secret"`

	// QuotaLimit is the account's known monthly allowance, informational.
	QuotaLimit int64 `json:"quota_limit" mapstructure:"quota_limit"`
}

// CredentialsConfig holds the provider credential pool configuration.
type CredentialsConfig struct {
	// Entries lists credentials in rotation order per provider.
	Entries []CredentialEntry `json:"entries" mapstructure:"entries"`
}

// OrchestratorConfig holds conversion pipeline tunables.
type OrchestratorConfig struct {
	// TransientRetries is the total tries per credential on transient
	// failures, including the first attempt.
	TransientRetries int `json:"transient_retries" mapstructure:"transient_retries"`

	// AttemptTimeoutSeconds bounds one provider call.
	AttemptTimeoutSeconds int `json:"attempt_timeout_seconds" mapstructure:"attempt_timeout_seconds"`

	// JobTimeoutSeconds bounds a whole job including failover.
	JobTimeoutSeconds int `json:"job_timeout_seconds" mapstructure:"job_timeout_seconds"`

	// RetryBackoffMillis is the initial delay between same-credential retries.
	RetryBackoffMillis int `json:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// StorageConfig holds credential health persistence configuration.
type StorageConfig struct {
	// Path is the SQLite database file. Empty keeps health in memory only.
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance loaded
// from a custom config file path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if fields
// are missing or out of range. A provider with zero credentials is not
// an error here: that only surfaces when a job needs the provider.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadMB <= 0 {
		validationErrors = append(validationErrors, "server.max_upload_mb must be positive")
	}

	for i, entry := range c.Credentials.Entries {
		if entry.Secret == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("credentials.entries[%d].secret is required", i))
		}
		if !domain.ProviderType(entry.Provider).IsValid() {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"credentials.entries[%d].provider '%s' is invalid, must be one of: convertapi, pdfco, textgears",
				i, entry.Provider,
			))
		}
		if entry.QuotaLimit < 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("credentials.entries[%d].quota_limit cannot be negative", i))
		}
	}

	if c.Orchestrator.TransientRetries <= 0 {
		validationErrors = append(validationErrors, "orchestrator.transient_retries must be positive")
	}
	if c.Orchestrator.AttemptTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "orchestrator.attempt_timeout_seconds must be positive")
	}
	if c.Orchestrator.JobTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "orchestrator.job_timeout_seconds must be positive")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be json or text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// CredentialSpecs converts the configured entries into registry specs,
// preserving rotation order.
func (c *Configuration) CredentialSpecs() []domain.CredentialSpec {
	specs := make([]domain.CredentialSpec, 0, len(c.Credentials.Entries))
	for _, entry := range c.Credentials.Entries {
		specs = append(specs, domain.CredentialSpec{
			Provider:   domain.ProviderType(entry.Provider),
			Secret:     entry.Secret,
			QuotaLimit: entry.QuotaLimit,
		})
	}
	return specs
}

// EntriesForProvider returns the configured credentials of one provider,
// in rotation order.
func (c *Configuration) EntriesForProvider(provider domain.ProviderType) []CredentialEntry {
	entries := make([]CredentialEntry, 0)
	for _, entry := range c.Credentials.Entries {
		if domain.ProviderType(entry.Provider) == provider {
			entries = append(entries, entry)
		}
	}
	return entries
}
