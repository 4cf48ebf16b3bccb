// Package config loads and validates igsup configuration from a TOML file
// with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultAuditDB is the audit ledger path used when none is configured.
const DefaultAuditDB = "igsup_audit.db"

// Config holds the settings needed to talk to the reporting backend.
// Certificate and Key are paths to the mutual-TLS client credential pair.
type Config struct {
	Certificate  string `toml:"certificate"`
	Key          string `toml:"key"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	BaseURL      string `toml:"base_url"`

	LogLevel string `toml:"log_level"`
	AuditDB  string `toml:"audit_db"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		AuditDB:  DefaultAuditDB,
	}
}

// credentialFields maps the six required credential settings to their values.
// Used by Validate for the all-absent check and missing-key reporting.
func (c *Config) credentialFields() map[string]string {
	return map[string]string{
		"certificate":   c.Certificate,
		"key":           c.Key,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"username":      c.Username,
		"base_url":      c.BaseURL,
	}
}

// Validate checks the credential settings. Absence of all six is an error;
// partial absence is logged as informational so a run against a backend
// that doesn't need every field can still proceed.
func (c *Config) Validate(logger *slog.Logger) error {
	fields := c.credentialFields()

	present := 0
	for _, v := range fields {
		if v != "" {
			present++
		}
	}

	if present == 0 {
		return fmt.Errorf("config: no credential settings found; expected at least one of " +
			"certificate, key, client_id, client_secret, username, base_url")
	}

	for name, v := range fields {
		if v == "" {
			logger.Info("config: setting not provided", slog.String("key", name))
		}
	}

	return nil
}

// Load reads and parses a TOML config file at the given path, applies
// environment overrides, and validates the result.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: file not found at %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}

	return cfg, nil
}
