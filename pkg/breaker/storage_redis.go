package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// baseNamespace is the key prefix shared by every RedisStorage instance.
const baseNamespace = "fusebox"

// setOpenedAtScript atomically writes the opened-at timestamp only if the
// new value is greater than the stored one, so a late-arriving open
// transition from one process cannot regress a timestamp written by a
// concurrent, more recent one.
const setOpenedAtScript = `
local current = redis.call('GET', KEYS[1])
if not current or tonumber(ARGV[1]) > tonumber(current) then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0`

// RedisClient is the subset of the go-redis client surface RedisStorage
// needs. *redis.Client, *redis.ClusterClient and redis.UniversalClient
// all satisfy it; tests supply an in-memory fake.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStorageConfig holds configuration for RedisStorage.
type RedisStorageConfig struct {
	// Namespace scopes this breaker's keys so one backend can host many
	// independent breakers. Keys are formed as
	// "fusebox:{namespace}:{field}".
	Namespace string

	// SeedState is written (with SETNX, so never overwriting an
	// existing value) when the storage is created.
	// Default: StateClosed
	SeedState State

	// FallbackState is the state reported when redis is unreachable.
	// Choose it to fail safe for the guarded dependency.
	// Default: StateClosed
	FallbackState State

	// Logger for backend errors. Default: slog.Default()
	Logger *slog.Logger
}

// RedisStorage implements Storage on a shared redis backend.
//
// All operations are best effort: read failures return the configured
// fallback state (or zero values), write failures are logged and dropped.
// A redis outage therefore degrades the breaker to its fallback behavior
// but never surfaces as a call failure.
//
// Opened-at timestamps are stored as integer epoch seconds. The second
// resolution means ResetTimeout values under ~2s are not meaningful on
// this backend; MemoryStorage keeps sub-second precision.
//
// One redis connection may back many breakers, one RedisStorage per
// namespace; only single-key atomic operations are relied upon.
type RedisStorage struct {
	client    RedisClient
	namespace string
	fallback  State
	logger    *slog.Logger
}

// NewRedisStorage creates a RedisStorage on the given client and seeds
// the state and counter keys if absent. Seeding failures are logged and
// ignored; they are indistinguishable from any later write failure.
func NewRedisStorage(ctx context.Context, client RedisClient, cfg RedisStorageConfig) *RedisStorage {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &RedisStorage{
		client:    client,
		namespace: cfg.Namespace,
		fallback:  cfg.FallbackState,
		logger:    cfg.Logger,
	}

	if err := client.SetNX(ctx, s.key("fail_counter"), 0, 0).Err(); err != nil {
		s.logError("seed fail_counter", err)
	}
	if err := client.SetNX(ctx, s.key("state"), cfg.SeedState.String(), 0).Err(); err != nil {
		s.logError("seed state", err)
	}

	return s
}

// Name returns "redis".
func (s *RedisStorage) Name() string {
	return "redis"
}

// State returns the canonical circuit state, or the fallback state when
// redis is unreachable or the key is missing.
func (s *RedisStorage) State(ctx context.Context) State {
	val, err := s.client.Get(ctx, s.key("state")).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logError("read state, falling back to default circuit state", err)
		}
		return s.fallback
	}

	state, err := ParseState(val)
	if err != nil {
		s.logError("parse state, falling back to default circuit state", err)
		return s.fallback
	}
	return state
}

// SetState sets the canonical circuit state. Best effort.
func (s *RedisStorage) SetState(ctx context.Context, state State) {
	if err := s.client.Set(ctx, s.key("state"), state.String(), 0).Err(); err != nil {
		s.logError("set state", err)
	}
}

// Counter returns the current failure count, or zero when redis is
// unreachable ("assume no failures" keeps the fallback behavior
// governed by FallbackState alone).
func (s *RedisStorage) Counter(ctx context.Context) int {
	val, err := s.client.Get(ctx, s.key("fail_counter")).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logError("read fail_counter, assuming zero", err)
		}
		return 0
	}
	return val
}

// IncrementCounter increases the failure counter with a single atomic
// INCR, so concurrent processes never lose increments to a
// read-modify-write race.
func (s *RedisStorage) IncrementCounter(ctx context.Context) {
	if err := s.client.Incr(ctx, s.key("fail_counter")).Err(); err != nil {
		s.logError("increment fail_counter", err)
	}
}

// ResetCounter sets the failure counter to zero. The write is skipped
// when the counter is already zero, which keeps steady-state successful
// traffic read-only on the backend.
func (s *RedisStorage) ResetCounter(ctx context.Context) {
	if s.Counter(ctx) == 0 {
		return
	}
	if err := s.client.Set(ctx, s.key("fail_counter"), 0, 0).Err(); err != nil {
		s.logError("reset fail_counter", err)
	}
}

// OpenedAt returns the most recent open timestamp, truncated to whole
// seconds (the storage resolution). ok is false when nothing has been
// recorded or redis is unreachable.
func (s *RedisStorage) OpenedAt(ctx context.Context) (time.Time, bool) {
	epoch, err := s.client.Get(ctx, s.key("opened_at")).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logError("read opened_at", err)
		}
		return time.Time{}, false
	}
	return time.Unix(epoch, 0).UTC(), true
}

// SetOpenedAt records an open transition at t, stored as integer epoch
// seconds. The write happens server-side in a script that only applies
// values newer than the stored one.
func (s *RedisStorage) SetOpenedAt(ctx context.Context, t time.Time) {
	err := s.client.Eval(ctx, setOpenedAtScript, []string{s.key("opened_at")}, t.Unix()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logError("set opened_at", err)
	}
}

// key forms "fusebox:{namespace}:{field}"; the namespace segment is
// omitted when empty.
func (s *RedisStorage) key(field string) string {
	if s.namespace == "" {
		return fmt.Sprintf("%s:%s", baseNamespace, field)
	}
	return fmt.Sprintf("%s:%s:%s", baseNamespace, s.namespace, field)
}

func (s *RedisStorage) logError(op string, err error) {
	s.logger.Error("redis circuit breaker storage error",
		slog.String("op", op),
		slog.String("namespace", s.namespace),
		slog.String("error", err.Error()))
}
