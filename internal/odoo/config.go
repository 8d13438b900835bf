// Package odoo provides a shared Odoo XML-RPC client for all payops components.
//
// Configuration is read from ~/.payops/secrets/odoo-config.json first,
// falling back to environment variables:
//   - PAYOPS_ODOO_URL (required, e.g. https://erp.example.com)
//   - PAYOPS_ODOO_DB (required)
//   - PAYOPS_ODOO_USERNAME (required)
//   - PAYOPS_ODOO_PASSWORD (required)
//
// In a hosted deployment the platform injects these through the "odoo"
// deployment secret declared in the manifest.
package odoo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// configFileName is the name of the config file under ~/.payops/secrets/
const configFileName = "odoo-config.json"

// Config holds Odoo connection configuration.
type Config struct {
	URL      string `json:"url"`
	DB       string `json:"db"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoadConfig reads Odoo configuration from the config file and environment
// variables. File values take precedence; env vars fill in any missing
// values. Returns an error if any field is missing from both sources.
func LoadConfig() (*Config, error) {
	return loadConfigFrom("", "")
}

// loadConfigFrom is the internal implementation that accepts overrides
// for testing. Pass empty strings to use real sources.
func loadConfigFrom(configPath, envPrefix string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".payops", "secrets", configFileName)
		}
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
			}
		}
	}

	if envPrefix == "" {
		envPrefix = "PAYOPS_ODOO"
	}
	if cfg.URL == "" {
		cfg.URL = os.Getenv(envPrefix + "_URL")
	}
	if cfg.DB == "" {
		cfg.DB = os.Getenv(envPrefix + "_DB")
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv(envPrefix + "_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(envPrefix + "_PASSWORD")
	}

	var missing []string
	if cfg.URL == "" {
		missing = append(missing, "url")
	}
	if cfg.DB == "" {
		missing = append(missing, "db")
	}
	if cfg.Username == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("odoo configuration incomplete, missing: %v (set %s_* env vars or %s)",
			missing, envPrefix, configFileName)
	}

	return cfg, nil
}

// IsConfigured reports whether a complete Odoo configuration is available
// without attempting a connection.
func IsConfigured() bool {
	_, err := LoadConfig()
	return err == nil
}
