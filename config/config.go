// Package config defines the application configuration loaded from
// environment variables.
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Database and Redis configuration
//   - runner.go: Job runner and rate limit configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, seed data).
	// Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Job runner configuration
	Runner RunnerConfig

	// Job creation rate limiting
	RateLimit RateLimitConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Runner.Sanitize()
	c.RateLimit.Sanitize()
}
