package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DatabaseURL    string
	GoogleClientID string

	Port            string
	Env             string
	LogLevel        zerolog.Level
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	// Per-profile limits on authenticated API routes
	RateLimitPerMinute int
	RateLimitBurst     int

	S3 S3Config
}

// S3Config points at the bucket profile pictures are stored in. Endpoint is
// only set for S3 compatible stores such as LocalStack.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicURL       string
}

// Enabled reports whether avatar uploads can be served
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the environment, after merging a .env file when one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		DatabaseURL:        env("DATABASE_URL", ""),
		GoogleClientID:     env("GOOGLE_CLIENT_ID", ""),
		Port:               env("PORT", "8080"),
		Env:                env("ENV", "development"),
		CORSOrigins:        envList("CORS_ORIGINS", "http://localhost:3000"),
		ShutdownTimeout:    envDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 100, &errs),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 10, &errs),
		S3: S3Config{
			Region:          env("S3_REGION", "us-east-1"),
			Bucket:          env("S3_BUCKET", ""),
			AccessKeyID:     env("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: env("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        env("S3_ENDPOINT", ""),
			PublicURL:       env("S3_PUBLIC_URL", ""),
		},
	}

	level, err := zerolog.ParseLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("DATABASE_URL is required")
	case c.GoogleClientID == "":
		return errors.New("GOOGLE_CLIENT_ID is required")
	case c.RateLimitPerMinute <= 0:
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	case c.RateLimitBurst <= 0:
		return errors.New("RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(env(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int, errs *[]error) int {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer: %w", key, err))
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration such as 15s: %w", key, err))
	}
	return d
}
