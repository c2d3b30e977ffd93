// Package config loads operator configuration and resolves extraction rules.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the operator configuration for the service.
type Config struct {
	Dropbox       DropboxConfig
	Auth          AuthConfig
	Extraction    ExtractionConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Debug         bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxBodyBytes       int64
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DropboxConfig holds document store credentials.
type DropboxConfig struct {
	AccessToken  string
	RefreshToken string
	AppKey       string
	AppSecret    string
}

// AuthConfig holds the caller credential check.
type AuthConfig struct {
	// ClientID is compared against the clientid query parameter.
	// It defaults to the Dropbox app key.
	ClientID string
}

// ExtractionConfig holds rule and response settings.
type ExtractionConfig struct {
	Currency string
	Version  string
	// Override is the raw operator rule configuration (JSON). It is parsed
	// per request; see BuildCatalog.
	Override []byte
}

// ObservabilityConfig toggles the metrics endpoint.
type ObservabilityConfig struct {
	MetricsEnabled bool
}

// RegisterDefaults installs defaults and environment bindings on the global viper.
func RegisterDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8787)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.rate_limit_per_second", 0)
	viper.SetDefault("server.rate_limit_burst", 0)
	viper.SetDefault("server.max_body_bytes", 1<<20)
	viper.SetDefault("extraction.currency", "EUR")
	viper.SetDefault("extraction.version", "1.0.1")
	viper.SetDefault("observability.metrics_enabled", true)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	viper.SetEnvPrefix("SHEETSUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Historical variable names used by existing deployments.
	_ = viper.BindEnv("dropbox.access_token", "SHEETSUM_DROPBOX_ACCESS_TOKEN", "DROPBOX_ACCESS_TOKEN")
	_ = viper.BindEnv("dropbox.refresh_token", "SHEETSUM_DROPBOX_REFRESH_TOKEN", "DROPBOX_REFRESH_TOKEN")
	_ = viper.BindEnv("dropbox.app_key", "SHEETSUM_DROPBOX_APP_KEY", "DROPBOX_APP_KEY")
	_ = viper.BindEnv("dropbox.app_secret", "SHEETSUM_DROPBOX_APP_SECRET", "DROPBOX_APP_SECRET")
	_ = viper.BindEnv("extraction.config", "SHEETSUM_EXTRACTION_CONFIG", "EXTRACTION_CONFIG")
	_ = viper.BindEnv("debug", "SHEETSUM_DEBUG", "DEBUG")
}

// Load builds a Config from the global viper instance.
func Load() (*Config, error) {
	override, err := overrideBytes(viper.Get("extraction.config"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               viper.GetString("server.host"),
			Port:               viper.GetInt("server.port"),
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutdownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RateLimitPerSecond: viper.GetFloat64("server.rate_limit_per_second"),
			RateLimitBurst:     viper.GetInt("server.rate_limit_burst"),
			MaxBodyBytes:       viper.GetInt64("server.max_body_bytes"),
		},
		Dropbox: DropboxConfig{
			AccessToken:  viper.GetString("dropbox.access_token"),
			RefreshToken: viper.GetString("dropbox.refresh_token"),
			AppKey:       viper.GetString("dropbox.app_key"),
			AppSecret:    viper.GetString("dropbox.app_secret"),
		},
		Auth: AuthConfig{
			ClientID: viper.GetString("auth.client_id"),
		},
		Extraction: ExtractionConfig{
			Currency: viper.GetString("extraction.currency"),
			Version:  viper.GetString("extraction.version"),
			Override: override,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: viper.GetBool("observability.metrics_enabled"),
		},
		Debug: viper.GetBool("debug"),
	}

	if cfg.Auth.ClientID == "" {
		cfg.Auth.ClientID = cfg.Dropbox.AppKey
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	return cfg, nil
}

// overrideBytes turns the extraction.config value into JSON. Environment
// variables arrive as JSON text; config files arrive already decoded.
func overrideBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to encode extraction config: %w", err)
		}
		return data, nil
	}
}
