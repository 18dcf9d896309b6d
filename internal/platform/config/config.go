package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	ContextModeShared    = "shared"
	ContextModeEphemeral = "ephemeral"

	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Host      string `env:"HOST" default:"localhost"`
	Port      string `env:"PORT" default:"5501"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// CKKS scheme parameters, fixed for the lifetime of the process.
	ContextMode        string `env:"CONTEXT_MODE" default:"shared"`
	LogN               int    `env:"CKKS_LOG_N" default:"13"`
	LogQ               []int  `env:"CKKS_LOG_Q" default:"60,40"`
	LogP               []int  `env:"CKKS_LOG_P" default:"60"`
	LogScale           int    `env:"CKKS_LOG_SCALE" default:"40"`
	Rotations          []int  `env:"CKKS_ROTATIONS"`
	EncryptConcurrency int    `env:"ENCRYPT_CONCURRENCY" default:"0"`

	KeyDir           string `env:"KEY_DIR"`
	KeyEncryptionKey string `env:"KEY_ENCRYPTION_KEY"`

	StoreBackend string        `env:"STORE_BACKEND" default:"file"`
	StoreDir     string        `env:"STORE_DIR" default:"."`
	RedisURL     string        `env:"REDIS_URL"`
	ArtifactTTL  time.Duration `env:"ARTIFACT_TTL" default:"0s"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" default:"*"`
	EncryptRateLimit   float64       `env:"ENCRYPT_RATE_LIMIT" default:"10"`
	EncryptRateBurst   int           `env:"ENCRYPT_RATE_BURST" default:"20"`
	MaxBodySize        string        `env:"MAX_BODY_SIZE" default:"8M"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" default:"30s"`
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Scheme parameter consistency (scale vs modulus budget, security bound) is
// checked where the context is built; here only the shape is validated.
func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}

	switch cfg.ContextMode {
	case ContextModeShared, ContextModeEphemeral:
	default:
		return fmt.Errorf("CONTEXT_MODE must be %q or %q, got %q", ContextModeShared, ContextModeEphemeral, cfg.ContextMode)
	}

	if len(cfg.LogQ) == 0 {
		return errors.New("CKKS_LOG_Q must list at least one prime size")
	}
	if len(cfg.LogP) == 0 {
		return errors.New("CKKS_LOG_P must list at least one prime size")
	}
	if cfg.EncryptConcurrency < 0 {
		return fmt.Errorf("ENCRYPT_CONCURRENCY must not be negative, got %d", cfg.EncryptConcurrency)
	}

	switch cfg.StoreBackend {
	case StoreBackendFile:
		if cfg.StoreDir == "" {
			return errors.New("STORE_DIR is required for the file store backend")
		}
	case StoreBackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendFile, StoreBackendRedis, cfg.StoreBackend)
	}

	if cfg.ArtifactTTL < 0 {
		return errors.New("ARTIFACT_TTL must not be negative")
	}

	if cfg.KeyEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.KeyEncryptionKey)
		if err != nil {
			return fmt.Errorf("KEY_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("KEY_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.EncryptRateLimit <= 0 || cfg.EncryptRateBurst <= 0 {
		return errors.New("ENCRYPT_RATE_LIMIT and ENCRYPT_RATE_BURST must be positive")
	}

	if cfg.IsProduction() {
		return validateProduction(cfg)
	}
	return nil
}

func validateProduction(cfg *Config) error {
	if cfg.ContextMode == ContextModeEphemeral {
		return errors.New("CONTEXT_MODE=ephemeral generates key material per request and is not allowed in production")
	}
	if cfg.KeyDir != "" && cfg.KeyEncryptionKey == "" {
		return errors.New("KEY_ENCRYPTION_KEY is required in production when KEY_DIR is set")
	}
	if slices.Contains(cfg.CORSAllowedOrigins, "*") {
		return errors.New("CORS_ALLOWED_ORIGINS=* is not allowed in production")
	}
	return nil
}
