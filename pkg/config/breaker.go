package config

import (
	"log/slog"
	"time"

	"fusebox/pkg/breaker"
)

// BreakerConfig holds the environment-derived circuit breaker settings
// for one process.
type BreakerConfig struct {
	// Enabled controls whether calls run through circuit breakers at
	// all. When false, integration layers should call dependencies
	// directly.
	// Default: true
	Enabled bool

	// FailMax is the consecutive failure threshold that trips a
	// circuit.
	// Default: 5
	FailMax int

	// ResetTimeout is how long a tripped circuit stays open before a
	// trial call probes for recovery.
	// Default: 60s
	ResetTimeout time.Duration

	// CountRejectedFailures controls whether fail-fast rejections
	// increment the failure counter (see
	// breaker.Config.CountRejectedFailures).
	// Default: false
	CountRejectedFailures bool

	// FallbackState is the state a redis-backed breaker reports when
	// redis is unreachable. "closed" fails open (calls keep flowing),
	// "open" fails shut.
	// Default: closed
	FallbackState breaker.State

	// RedisAddr is the address of the shared redis backend
	// ("host:port"). When empty, breakers use in-process memory
	// storage.
	// Default: "" (memory storage)
	RedisAddr string

	// RedisDB is the redis database number for breaker keys.
	// Default: 0
	RedisDB int

	// Namespace is the base instance namespace prefixed to every
	// dependency's storage namespace, so several deployments (e.g.
	// staging and production) can share one redis without observing
	// each other's breakers.
	// Default: ""
	Namespace string
}

// Template returns the breaker.Config template corresponding to this
// configuration, for use with breaker.NewRegistry.
func (c *BreakerConfig) Template() breaker.Config {
	return breaker.Config{
		FailMax:               c.FailMax,
		ResetTimeout:          c.ResetTimeout,
		CountRejectedFailures: c.CountRejectedFailures,
	}
}

// LoadBreakerConfig loads circuit breaker configuration from environment
// variables.
//
// Invalid values are logged as warnings and replaced with safe defaults
// instead of failing, so a typo in one variable never keeps a process
// from starting.
//
// Environment variables:
//   - FUSEBOX_ENABLED: Enable/disable circuit breaking (default: true)
//   - FUSEBOX_FAIL_MAX: Consecutive failure threshold (default: 5)
//   - FUSEBOX_RESET_TIMEOUT: Open-state reset timeout (default: 60s)
//   - FUSEBOX_COUNT_REJECTED: Count fail-fast rejections (default: false)
//   - FUSEBOX_FALLBACK_STATE: State reported when redis is unreachable,
//     "closed", "open" or "half-open" (default: closed)
//   - FUSEBOX_REDIS_ADDR: Shared redis address; empty selects memory
//     storage (default: "")
//   - FUSEBOX_REDIS_DB: Redis database number (default: 0)
//   - FUSEBOX_NAMESPACE: Base namespace for storage keys (default: "")
func LoadBreakerConfig() *BreakerConfig {
	cfg := &BreakerConfig{}

	cfg.Enabled = GetEnvBool("FUSEBOX_ENABLED", true)

	failMax := GetEnvInt("FUSEBOX_FAIL_MAX", 5)
	if failMax <= 0 {
		slog.Warn("invalid FUSEBOX_FAIL_MAX, using default",
			slog.Int("value", failMax),
			slog.Int("default", 5))
		failMax = 5
	}
	cfg.FailMax = failMax

	resetTimeout := GetEnvDuration("FUSEBOX_RESET_TIMEOUT", 60*time.Second)
	if err := ValidatePositiveDuration(resetTimeout); err != nil {
		slog.Warn("invalid FUSEBOX_RESET_TIMEOUT, using default",
			slog.String("value", resetTimeout.String()),
			slog.String("default", "1m0s"),
			slog.String("error", err.Error()))
		resetTimeout = 60 * time.Second
	}
	cfg.ResetTimeout = resetTimeout

	cfg.CountRejectedFailures = GetEnvBool("FUSEBOX_COUNT_REJECTED", false)

	fallbackName := GetEnvString("FUSEBOX_FALLBACK_STATE", breaker.StateClosed.String())
	fallback, err := breaker.ParseState(fallbackName)
	if err != nil {
		slog.Warn("invalid FUSEBOX_FALLBACK_STATE, using default",
			slog.String("value", fallbackName),
			slog.String("default", breaker.StateClosed.String()))
		fallback = breaker.StateClosed
	}
	cfg.FallbackState = fallback

	cfg.RedisAddr = GetEnvString("FUSEBOX_REDIS_ADDR", "")

	redisDB := GetEnvInt("FUSEBOX_REDIS_DB", 0)
	if redisDB < 0 {
		slog.Warn("invalid FUSEBOX_REDIS_DB, using default",
			slog.Int("value", redisDB),
			slog.Int("default", 0))
		redisDB = 0
	}
	cfg.RedisDB = redisDB

	cfg.Namespace = GetEnvString("FUSEBOX_NAMESPACE", "")

	return cfg
}
