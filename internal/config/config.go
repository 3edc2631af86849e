package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Credential validation (token issuance lives elsewhere; this service
	// only validates).
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`

	// Time-gated access control.
	GateBlockedStart string   `mapstructure:"GATE_BLOCKED_START"`
	GateBlockedEnd   string   `mapstructure:"GATE_BLOCKED_END"`
	GateExemptRoles  []string `mapstructure:"GATE_EXEMPT_ROLES"`
	GateFailClosed   bool     `mapstructure:"GATE_FAIL_CLOSED"`

	// Overdue sweeper.
	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES"`
	SweepGraceMinutes    int `mapstructure:"SWEEP_GRACE_MINUTES"`

	// One-way notification target for the clinical record system.
	// Empty disables notifications.
	ClinicalRecordURL    string `mapstructure:"CLINICAL_RECORD_URL"`
	ClinicalRecordSecret string `mapstructure:"CLINICAL_RECORD_SECRET"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GATE_BLOCKED_START", "21:00")
	v.SetDefault("GATE_BLOCKED_END", "06:00")
	v.SetDefault("GATE_EXEMPT_ROLES", "Administrador")
	v.SetDefault("GATE_FAIL_CLOSED", false)
	v.SetDefault("SWEEP_INTERVAL_MINUTES", 15)
	v.SetDefault("SWEEP_GRACE_MINUTES", 60)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("GATE_BLOCKED_START")
	v.BindEnv("GATE_BLOCKED_END")
	v.BindEnv("GATE_EXEMPT_ROLES")
	v.BindEnv("GATE_FAIL_CLOSED")
	v.BindEnv("SWEEP_INTERVAL_MINUTES")
	v.BindEnv("SWEEP_GRACE_MINUTES")
	v.BindEnv("CLINICAL_RECORD_URL")
	v.BindEnv("CLINICAL_RECORD_SECRET")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.GateExemptRoles == nil {
		if roles := v.GetString("GATE_EXEMPT_ROLES"); roles != "" {
			cfg.GateExemptRoles = strings.Split(roles, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production a
// signing key must be set so that real credential validation is enforced;
// in development unauthenticated requests are allowed through outside the
// blocked window.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production; " +
			"refusing to start without credential validation configuration")
	}
	if c.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be positive, got %d", c.SweepIntervalMinutes)
	}
	if c.SweepGraceMinutes < 0 {
		return fmt.Errorf("SWEEP_GRACE_MINUTES must not be negative, got %d", c.SweepGraceMinutes)
	}
	return nil
}
