package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fusebox/pkg/breaker"
)

func clearBreakerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FUSEBOX_ENABLED",
		"FUSEBOX_FAIL_MAX",
		"FUSEBOX_RESET_TIMEOUT",
		"FUSEBOX_COUNT_REJECTED",
		"FUSEBOX_FALLBACK_STATE",
		"FUSEBOX_REDIS_ADDR",
		"FUSEBOX_REDIS_DB",
		"FUSEBOX_NAMESPACE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadBreakerConfig_Defaults(t *testing.T) {
	clearBreakerEnv(t)

	cfg := LoadBreakerConfig()
	require.NotNil(t, cfg)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.FailMax)
	assert.Equal(t, 60*time.Second, cfg.ResetTimeout)
	assert.False(t, cfg.CountRejectedFailures)
	assert.Equal(t, breaker.StateClosed, cfg.FallbackState)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Empty(t, cfg.Namespace)
}

func TestLoadBreakerConfig_FromEnvironment(t *testing.T) {
	clearBreakerEnv(t)
	t.Setenv("FUSEBOX_ENABLED", "false")
	t.Setenv("FUSEBOX_FAIL_MAX", "3")
	t.Setenv("FUSEBOX_RESET_TIMEOUT", "500ms")
	t.Setenv("FUSEBOX_COUNT_REJECTED", "true")
	t.Setenv("FUSEBOX_FALLBACK_STATE", "open")
	t.Setenv("FUSEBOX_REDIS_ADDR", "redis:6379")
	t.Setenv("FUSEBOX_REDIS_DB", "2")
	t.Setenv("FUSEBOX_NAMESPACE", "staging")

	cfg := LoadBreakerConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.FailMax)
	assert.Equal(t, 500*time.Millisecond, cfg.ResetTimeout)
	assert.True(t, cfg.CountRejectedFailures)
	assert.Equal(t, breaker.StateOpen, cfg.FallbackState)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "staging", cfg.Namespace)
}

func TestLoadBreakerConfig_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg *BreakerConfig)
	}{
		{
			name:  "non-positive fail max",
			key:   "FUSEBOX_FAIL_MAX",
			value: "0",
			check: func(t *testing.T, cfg *BreakerConfig) {
				assert.Equal(t, 5, cfg.FailMax)
			},
		},
		{
			name:  "negative fail max",
			key:   "FUSEBOX_FAIL_MAX",
			value: "-2",
			check: func(t *testing.T, cfg *BreakerConfig) {
				assert.Equal(t, 5, cfg.FailMax)
			},
		},
		{
			name:  "negative reset timeout",
			key:   "FUSEBOX_RESET_TIMEOUT",
			value: "-10s",
			check: func(t *testing.T, cfg *BreakerConfig) {
				assert.Equal(t, 60*time.Second, cfg.ResetTimeout)
			},
		},
		{
			name:  "unknown fallback state",
			key:   "FUSEBOX_FALLBACK_STATE",
			value: "tripped",
			check: func(t *testing.T, cfg *BreakerConfig) {
				assert.Equal(t, breaker.StateClosed, cfg.FallbackState)
			},
		},
		{
			name:  "negative redis db",
			key:   "FUSEBOX_REDIS_DB",
			value: "-1",
			check: func(t *testing.T, cfg *BreakerConfig) {
				assert.Equal(t, 0, cfg.RedisDB)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBreakerEnv(t)
			t.Setenv(tt.key, tt.value)
			tt.check(t, LoadBreakerConfig())
		})
	}
}

func TestBreakerConfig_Template(t *testing.T) {
	cfg := &BreakerConfig{
		FailMax:               7,
		ResetTimeout:          45 * time.Second,
		CountRejectedFailures: true,
	}

	template := cfg.Template()
	assert.Equal(t, 7, template.FailMax)
	assert.Equal(t, 45*time.Second, template.ResetTimeout)
	assert.True(t, template.CountRejectedFailures)
	assert.Empty(t, template.Name)
	assert.Nil(t, template.Storage)
}
