package config

import "time"

// RunnerConfig contains job runner configuration.
type RunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"RUNNER_CONCURRENCY" envDefault:"2"`

	// PollInterval is how long an idle worker waits before polling again.
	PollInterval time.Duration `env:"RUNNER_POLL_INTERVAL" envDefault:"1s"`

	// WorkerURL is the endpoint of the push worker that executes jobs.
	WorkerURL string `env:"RUNNER_WORKER_URL"`
}

// Sanitize applies guardrails to runner configuration values.
func (r *RunnerConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.PollInterval < 100*time.Millisecond {
		r.PollInterval = 100 * time.Millisecond
	}
}

// RateLimitConfig contains job creation rate limit configuration.
type RateLimitConfig struct {
	// Enabled toggles the per-user job creation rate limit.
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// MaxRequests is the number of job creations allowed per window per user.
	MaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"10"`

	// Window is the fixed rate limiting window.
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.MaxRequests < 1 {
		r.MaxRequests = 1
	}
	if r.Window < time.Second {
		r.Window = time.Second
	}
}
