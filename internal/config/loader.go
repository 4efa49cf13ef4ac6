// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "STI_CONVERT"
)

// providerEnvPrefixes names the per-account credential variables:
// CONVERTAPI_KEY_1, CONVERTAPI_KEY_2 and so on. Index order is rotation
// order and the scan stops at the first gap.
var providerEnvPrefixes = []struct {
	provider domain.ProviderType
	prefix   string
}{
	{domain.ProviderConvertAPI, "CONVERTAPI_KEY_"},
	{domain.ProviderPDFCo, "PDFCO_KEY_"},
	{domain.ProviderTextGears, "TEXTGEARS_KEY_"},
}

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. CONVERTAPI_KEY_N / PDFCO_KEY_N / TEXTGEARS_KEY_N credential variables
// 2. Environment variables (prefixed with STI_CONVERT_)
// 3. config.yaml
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sti-converter")
		v.AddConfigPath("$HOME/.sti-converter")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, credentials usually arrive via env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	mergeEnvCredentials(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("server.max_upload_mb", 32)

	// Orchestrator defaults
	v.SetDefault("orchestrator.transient_retries", 2)
	v.SetDefault("orchestrator.attempt_timeout_seconds", 45)
	v.SetDefault("orchestrator.job_timeout_seconds", 180)
	v.SetDefault("orchestrator.retry_backoff_ms", 500)

	// Storage defaults: empty path keeps credential health in memory only
	v.SetDefault("storage.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// mergeEnvCredentials overlays environment-supplied credentials onto the
// file configuration. A provider with at least one env credential drops
// its file entries entirely, so stale keys in a forgotten config.yaml
// cannot shadow rotated production keys.
func mergeEnvCredentials(cfg *Configuration) {
	envEntries := scanEnvCredentials()
	if len(envEntries) == 0 {
		return
	}

	fromEnv := make(map[string]bool)
	for _, entry := range envEntries {
		fromEnv[entry.Provider] = true
	}

	kept := make([]CredentialEntry, 0, len(cfg.Credentials.Entries)+len(envEntries))
	for _, entry := range cfg.Credentials.Entries {
		if !fromEnv[entry.Provider] {
			kept = append(kept, entry)
		}
	}
	cfg.Credentials.Entries = append(kept, envEntries...)
}

// scanEnvCredentials reads the indexed credential variables for every
// provider. The account index starts at 1 and a gap ends that
// provider's scan.
func scanEnvCredentials() []CredentialEntry {
	var entries []CredentialEntry
	for _, pe := range providerEnvPrefixes {
		for i := 1; ; i++ {
			secret := strings.TrimSpace(os.Getenv(pe.prefix + strconv.Itoa(i)))
			if secret == "" {
				break
			}
			entry := CredentialEntry{
				Provider: string(pe.provider),
				Secret:   secret,
			}
			// An optional companion variable carries the account's quota.
			if limit := os.Getenv(pe.prefix + strconv.Itoa(i) + "_QUOTA"); limit != "" {
				if parsed, err := strconv.ParseInt(limit, 10, 64); err == nil && parsed > 0 {
					entry.QuotaLimit = parsed
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries
}
