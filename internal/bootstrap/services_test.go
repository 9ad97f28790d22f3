package bootstrap

import (
	"testing"

	"github.com/pushforge/pushforge/config"
	"github.com/stretchr/testify/assert"
)

func TestNewServices_NilDeps(t *testing.T) {
	t.Parallel()

	container := NewServices(nil)
	assert.Nil(t, container.Jobs)
	assert.Nil(t, container.Credits)
	assert.Nil(t, container.Safety)
}

func TestRateLimitEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, rateLimitEnabled(nil))
	assert.False(t, rateLimitEnabled(&config.AppConfig{}))

	cfg := &config.AppConfig{}
	cfg.RateLimit.Enabled = true
	assert.True(t, rateLimitEnabled(cfg))
}

func TestRunWithShutdown_RequiresRunner(t *testing.T) {
	t.Parallel()

	err := RunWithShutdown(nil, nil)
	assert.Error(t, err)
}
