package token

import (
	"os"
	"time"
)

// Config defines runtime configuration for token issuance and verification.
//
// It is intentionally explicit and environment-driven so that deployments can
// tune security parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// TokenTTL defines the lifetime of issued tokens.
	TokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// SecretKeyHex is the hex-encoded 32-byte symmetric key used to seal
	// PASETO v4.local tokens. Both services must be configured with the same
	// key or nothing issued by one will verify at the other.
	SecretKeyHex string
}

// DefaultConfig returns defaults suitable for development.
//
// Production environments should override values via environment variables.
func DefaultConfig() Config {
	return Config{
		Issuer:    "campus",
		TokenTTL:  30 * time.Minute,
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - CAMPUS_TOKEN_SECRET_KEY_HEX
//
// Optional (durations must be valid Go duration strings):
//   - CAMPUS_AUTH_ISSUER
//   - CAMPUS_AUTH_TOKEN_TTL
//   - CAMPUS_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CAMPUS_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("CAMPUS_AUTH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv("CAMPUS_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.SecretKeyHex = os.Getenv("CAMPUS_TOKEN_SECRET_KEY_HEX")
	if cfg.SecretKeyHex == "" {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
