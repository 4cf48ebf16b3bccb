package config

import "os"

// Environment variable names for overrides. Environment values win over the
// config file so CI and one-off runs can inject credentials without editing it.
const (
	EnvConfig       = "IGSUP_CONFIG"
	EnvCertificate  = "IGSUP_CERTIFICATE"
	EnvKey          = "IGSUP_KEY"
	EnvClientID     = "IGSUP_CLIENT_ID"
	EnvClientSecret = "IGSUP_CLIENT_SECRET"
	EnvUsername     = "IGSUP_USERNAME"
	EnvBaseURL      = "IGSUP_BASE_URL"
	EnvAuditDB      = "IGSUP_AUDIT_DB"
)

// ConfigPathFromEnv returns the config file path override, if set.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}

// applyEnvOverrides overwrites config fields from environment variables.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		EnvCertificate:  &cfg.Certificate,
		EnvKey:          &cfg.Key,
		EnvClientID:     &cfg.ClientID,
		EnvClientSecret: &cfg.ClientSecret,
		EnvUsername:     &cfg.Username,
		EnvBaseURL:      &cfg.BaseURL,
		EnvAuditDB:      &cfg.AuditDB,
	}

	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}
