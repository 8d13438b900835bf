// Package config loads payops daemon configuration.
// Configuration lives in ~/.payops/config.json with environment variable
// overrides; env vars take precedence over file values.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds payops daemon configuration.
type Config struct {
	// HTTP configures the optional TCP API listener. The unix-socket
	// listener is always enabled.
	HTTP HTTPConfig `json:"http"`

	// Debug enables debug-level logging.
	// Env override: PAYOPS_DEBUG=1
	Debug bool `json:"debug"`

	// LedgerPath is the path of the local payments ledger database.
	// Empty means ~/.payops/ledger.db.
	// Env override: PAYOPS_LEDGER_PATH
	LedgerPath string `json:"ledger_path"`

	// LogDir is the directory for rotated log files. Empty disables
	// file logging.
	// Env override: PAYOPS_LOG_DIR
	LogDir string `json:"log_dir"`

	// Auth configures the internal-access gate for the payments ledger
	// endpoints.
	Auth AuthConfig `json:"auth"`
}

// HTTPConfig holds settings for the optional TCP HTTP listener.
type HTTPConfig struct {
	// Port is the TCP port for the remote API listener. If 0, the TCP
	// listener is disabled.
	// Env override: PAYOPS_HTTP_PORT
	Port int `json:"port"`

	// APIKey authenticates remote API requests. When set, all TCP
	// requests must carry it in the X-API-Key header.
	// Env override: PAYOPS_API_KEY
	APIKey string `json:"api_key"`
}

// AuthConfig holds settings for internal-page authentication.
type AuthConfig struct {
	// InternalPassword gates the internal endpoints (payments ledger).
	// Env override: PAYOPS_INTERNAL_PASSWORD
	InternalPassword string `json:"internal_password"`

	// SessionSecret signs session tokens. If empty, internal endpoints
	// reject all requests.
	// Env override: PAYOPS_SESSION_SECRET
	SessionSecret string `json:"session_secret"`

	// SessionTTLHours is the session token lifetime. Zero means 12 hours.
	SessionTTLHours int `json:"session_ttl_hours"`
}

// Dir returns the payops home directory (~/.payops), creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".payops")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads configuration from the config file, then applies environment
// variable overrides. Config file locations checked in order:
//  1. PAYOPS_CONFIG env var (if set)
//  2. ~/.payops/config.json
//
// A missing file is not an error.
func Load() Config {
	var cfg Config

	configPath := os.Getenv("PAYOPS_CONFIG")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("Failed to get home directory for config", "error", err)
			applyEnvOverrides(&cfg)
			return cfg
		}
		configPath = filepath.Join(home, ".payops", "config.json")
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read config file", "path", configPath, "error", err)
		}
		// No config file — env vars only
		applyEnvOverrides(&cfg)
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("Failed to parse config file", "path", configPath, "error", err)
		// Fall through with zero config + env overrides
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if os.Getenv("PAYOPS_DEBUG") == "1" {
		cfg.Debug = true
	}
	if v := os.Getenv("PAYOPS_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.HTTP.Port = port
		}
	}
	if key := os.Getenv("PAYOPS_API_KEY"); key != "" {
		cfg.HTTP.APIKey = key
	}
	if v := os.Getenv("PAYOPS_LEDGER_PATH"); v != "" {
		cfg.LedgerPath = v
	}
	if v := os.Getenv("PAYOPS_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("PAYOPS_INTERNAL_PASSWORD"); v != "" {
		cfg.Auth.InternalPassword = v
	}
	if v := os.Getenv("PAYOPS_SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
}

// HTTPAddr returns the TCP listen address string (e.g. ":8080") or empty
// string if the TCP listener is disabled.
func (c *Config) HTTPAddr() string {
	if c.HTTP.Port == 0 {
		return ""
	}
	return ":" + strconv.Itoa(c.HTTP.Port)
}

// SessionTTLHoursOrDefault returns the configured session lifetime, falling
// back to 12 hours.
func (c *Config) SessionTTLHoursOrDefault() int {
	if c.Auth.SessionTTLHours <= 0 {
		return 12
	}
	return c.Auth.SessionTTLHours
}
