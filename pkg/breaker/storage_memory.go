package breaker

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is a thread-safe in-process implementation of Storage.
//
// It offers immediate consistency and has no failure mode. Opened-at
// timestamps keep the full sub-second precision of time.Time, so there is
// no practical lower bound on ResetTimeout with this backend.
//
// MemoryStorage serves exactly one process; use RedisStorage when several
// processes must share one canonical breaker state.
type MemoryStorage struct {
	mu       sync.Mutex
	state    State
	counter  int
	openedAt time.Time
	hasOpen  bool
}

// NewMemoryStorage creates a MemoryStorage seeded with the given state.
func NewMemoryStorage(state State) *MemoryStorage {
	return &MemoryStorage{state: state}
}

// Name returns "memory".
func (s *MemoryStorage) Name() string {
	return "memory"
}

// State returns the current circuit state.
func (s *MemoryStorage) State(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState sets the current circuit state.
func (s *MemoryStorage) SetState(ctx context.Context, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Counter returns the current failure count.
func (s *MemoryStorage) Counter(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// IncrementCounter increases the failure counter by one.
func (s *MemoryStorage) IncrementCounter(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
}

// ResetCounter sets the failure counter to zero.
func (s *MemoryStorage) ResetCounter(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = 0
}

// OpenedAt returns the most recent open timestamp.
func (s *MemoryStorage) OpenedAt(ctx context.Context) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openedAt, s.hasOpen
}

// SetOpenedAt records an open transition. Writes only if t is newer than
// the stored timestamp.
func (s *MemoryStorage) SetOpenedAt(ctx context.Context, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasOpen || t.After(s.openedAt) {
		s.openedAt = t
		s.hasOpen = true
	}
}
