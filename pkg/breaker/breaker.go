package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Config holds configuration for a CircuitBreaker.
type Config struct {
	// Name identifies the breaker in logs, metrics and errors.
	// Optional.
	Name string

	// FailMax is the number of consecutive qualifying failures that
	// trips the circuit.
	// Default: 5
	FailMax int

	// ResetTimeout is how long the circuit stays open before a trial
	// call probes for recovery.
	// Default: 60 seconds
	ResetTimeout time.Duration

	// Excluded classifies business errors that must not count as
	// breaker failures. Matching errors propagate unchanged and count
	// as successes for breaker health.
	Excluded []ErrorMatcher

	// Listeners are notified of breaker activity in registration
	// order.
	Listeners []Listener

	// Storage holds the canonical breaker state.
	// Default: NewMemoryStorage(StateClosed)
	Storage Storage

	// Clock provides time abstraction for testing.
	// Default: SystemClock
	Clock Clock

	// Metrics for recording call outcomes and state changes.
	// Default: NoOpMetrics
	Metrics Metrics

	// CountRejectedFailures controls whether calls rejected during the
	// open fail-fast window increment the failure counter. The counter
	// is only consulted while closed, so this is purely an
	// observability contract: enable it when the counter should
	// reflect demand hitting a tripped circuit, leave it off when it
	// should count operation failures only.
	// Default: false
	CountRejectedFailures bool
}

// CircuitBreaker is a stateful gate in front of calls to a
// potentially-failing dependency.
//
// The canonical state lives in the configured Storage; the breaker keeps
// a cached state object and reconciles it against storage on every
// access, which is how independent processes sharing one backend converge
// without a central coordinator.
//
// One mutex serializes reconciliation, gate decisions, transition
// bookkeeping and listener dispatch within the process. It is not held
// while the guarded operation runs, so calls do not serialize behind a
// slow dependency. It provides no cross-process serialization; cross-
// process safety rests entirely on the storage backend's atomic
// primitives. Under concurrent writers in separate processes the failure
// counter may transiently exceed FailMax and more than one process may
// independently enter half-open; this weak consistency is an accepted
// property of the design.
type CircuitBreaker struct {
	name          string
	storage       Storage
	clock         Clock
	metrics       Metrics
	countRejected bool

	mu           sync.Mutex
	failMax      int
	resetTimeout time.Duration
	excluded     []ErrorMatcher
	listeners    []Listener
	current      stateObject
	gen          uint64
}

// New creates a circuit breaker with the given configuration.
//
// If cfg.FailMax is not positive, it defaults to 5.
// If cfg.ResetTimeout is not positive, it defaults to 60 seconds.
// If cfg.Storage is nil, it defaults to a MemoryStorage seeded closed.
// If cfg.Clock is nil, it defaults to SystemClock.
// If cfg.Metrics is nil, it defaults to NoOpMetrics.
//
// Construction touches no storage; the cached state is seeded from the
// canonical storage value on first access, defaulting to closed.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailMax <= 0 {
		cfg.FailMax = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage(StateClosed)
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewNoOpMetrics()
	}

	return &CircuitBreaker{
		name:          cfg.Name,
		storage:       cfg.Storage,
		clock:         cfg.Clock,
		metrics:       cfg.Metrics,
		countRejected: cfg.CountRejectedFailures,
		failMax:       cfg.FailMax,
		resetTimeout:  cfg.ResetTimeout,
		excluded:      append([]ErrorMatcher(nil), cfg.Excluded...),
		listeners:     append([]Listener(nil), cfg.Listeners...),
	}
}

// Call executes op according to the rules of the current circuit state.
//
// It returns op's result, an error matching ErrOpen when the call is
// short-circuited (or when this call tripped the circuit), or op's own
// error unchanged when it is excluded or below the failure threshold.
//
// A context carrying the WithSkip flag bypasses the breaker entirely.
func (cb *CircuitBreaker) Call(ctx context.Context, op func(context.Context) error) error {
	if Skipped(ctx) {
		return op(ctx)
	}

	cb.mu.Lock()
	cb.reconcileLocked(ctx)

	for {
		gateErr := cb.current.gate(ctx, cb)
		if errors.Is(gateErr, errReGate) {
			continue
		}
		if gateErr != nil {
			cb.mu.Unlock()
			cb.metrics.RecordCall(cb.name, OutcomeRejected)
			if cb.countRejected {
				cb.storage.IncrementCounter(ctx)
			}
			return gateErr
		}
		break
	}

	admitted := cb.current
	gen := cb.gen
	for _, l := range cb.listeners {
		l.BeforeCall(ctx, cb)
	}
	cb.mu.Unlock()

	start := cb.clock.Now()
	settled := false
	defer func() {
		if !settled {
			// The guarded operation panicked. Settle the bookkeeping
			// as a failure, then let the panic propagate.
			cb.settle(ctx, admitted, gen, fmt.Errorf("guarded operation panicked"), cb.clock.Now().Sub(start))
		}
	}()

	opErr := op(ctx)
	settled = true
	return cb.settle(ctx, admitted, gen, opErr, cb.clock.Now().Sub(start))
}

// Do executes fn through the breaker cb and returns its value.
//
// It is a typed convenience over Call for operations that produce a
// result. When the call is rejected or fn fails, the zero value of T is
// returned alongside the error.
func Do[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := cb.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// settle applies a finished call's outcome to the breaker.
//
// admitted is the state object whose gate admitted the call; gen is the
// breaker generation at admission. When the generation has moved on (a
// concurrent call or explicit transition changed the state while this
// call was running), the outcome still updates the counter and notifies
// listeners, but no longer triggers transitions: the decision belongs to
// the state that admitted the call, and that state is gone.
func (cb *CircuitBreaker) settle(ctx context.Context, admitted stateObject, gen uint64, opErr error, elapsed time.Duration) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if h, ok := admitted.(*halfOpenState); ok {
		h.trialInFlight = false
	}

	cb.metrics.RecordCallDuration(cb.name, elapsed)
	stale := cb.gen != gen

	if opErr == nil || cb.isExcludedLocked(opErr) {
		cb.storage.ResetCounter(ctx)
		if !stale {
			admitted.onSuccess(ctx, cb)
		}
		for _, l := range cb.listeners {
			l.Success(ctx, cb)
		}
		if opErr != nil {
			cb.metrics.RecordCall(cb.name, OutcomeExcluded)
		} else {
			cb.metrics.RecordCall(cb.name, OutcomeSuccess)
		}
		return opErr
	}

	cb.storage.IncrementCounter(ctx)
	for _, l := range cb.listeners {
		l.Failure(ctx, cb, opErr)
	}
	cb.metrics.RecordCall(cb.name, OutcomeFailure)
	if stale {
		return opErr
	}
	return admitted.onFailure(ctx, cb, opErr)
}

// reconcileLocked compares the cached state object against the canonical
// storage state and rebuilds it on mismatch, running the new state's
// entry side effects and notifying listeners. This explicit
// compare-and-rebuild step, performed on every state access, is what
// lets processes sharing one backend converge.
//
// The very first access seeds the cached object from storage without
// entry side effects: adopting the canonical state at startup must not
// stomp counters or timestamps other processes rely on.
func (cb *CircuitBreaker) reconcileLocked(ctx context.Context) {
	canonical := cb.storage.State(ctx)

	if cb.current == nil {
		cb.current = cb.stateObjectFor(canonical)
		cb.gen++
		return
	}
	if canonical == cb.current.state() {
		return
	}

	from := cb.current.state()
	cb.current = cb.enterStateLocked(ctx, canonical)
	cb.gen++
	cb.metrics.RecordState(cb.name, canonical)
	for _, l := range cb.listeners {
		l.StateChange(ctx, cb, from, canonical)
	}
}

// transitionLocked moves the breaker to the given state: canonical
// storage first, then the cached state object (running entry side
// effects), then metrics and listeners.
func (cb *CircuitBreaker) transitionLocked(ctx context.Context, to State) {
	from := StateClosed
	if cb.current != nil {
		from = cb.current.state()
	}

	cb.storage.SetState(ctx, to)
	cb.current = cb.enterStateLocked(ctx, to)
	cb.gen++
	cb.metrics.RecordState(cb.name, to)
	for _, l := range cb.listeners {
		l.StateChange(ctx, cb, from, to)
	}
}

// enterStateLocked builds the state object for to and runs its entry
// side effects: entering closed resets the failure counter, entering
// open records the opened-at timestamp (under the storage's only-if-
// newer discipline).
func (cb *CircuitBreaker) enterStateLocked(ctx context.Context, to State) stateObject {
	switch to {
	case StateOpen:
		cb.storage.SetOpenedAt(ctx, cb.clock.Now())
	case StateClosed:
		cb.storage.ResetCounter(ctx)
	}
	return cb.stateObjectFor(to)
}

// stateObjectFor builds the state object for s without side effects.
func (cb *CircuitBreaker) stateObjectFor(s State) stateObject {
	switch s {
	case StateOpen:
		return &openState{}
	case StateHalfOpen:
		return &halfOpenState{}
	default:
		return &closedState{}
	}
}

func (cb *CircuitBreaker) isExcludedLocked(err error) bool {
	for _, match := range cb.excluded {
		if match(err) {
			return true
		}
	}
	return false
}

// Open trips the circuit explicitly, bypassing the automatic trigger
// conditions. Following calls fail fast until the reset timeout elapses.
func (cb *CircuitBreaker) Open(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reconcileLocked(ctx)
	cb.transitionLocked(ctx, StateOpen)
}

// Close closes the circuit explicitly. The failure counter is reset as
// part of the closed-state entry.
func (cb *CircuitBreaker) Close(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reconcileLocked(ctx)
	cb.transitionLocked(ctx, StateClosed)
}

// HalfOpen puts the circuit into probation explicitly: the next call
// runs as the single trial.
func (cb *CircuitBreaker) HalfOpen(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reconcileLocked(ctx)
	cb.transitionLocked(ctx, StateHalfOpen)
}

// SeedProbation forces the circuit into half-open if its canonical state
// is open.
//
// Call it once at process start for breakers on shared storage: a
// restarted process finding the circuit open would otherwise rebuild the
// open state with a fresh opened-at timestamp and stay dark for a full
// reset window, even if the dependency has long recovered.
func (cb *CircuitBreaker) SeedProbation(ctx context.Context) {
	if cb.storage.State(ctx) == StateOpen {
		cb.HalfOpen(ctx)
	}
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Storage returns the breaker's storage backend.
func (cb *CircuitBreaker) Storage() Storage {
	return cb.storage
}

// FailCounter returns the current consecutive failure count from
// canonical storage.
func (cb *CircuitBreaker) FailCounter(ctx context.Context) int {
	return cb.storage.Counter(ctx)
}

// CurrentState returns the canonical circuit state from storage, without
// reconciling the cached state object.
func (cb *CircuitBreaker) CurrentState(ctx context.Context) State {
	return cb.storage.State(ctx)
}

// State returns the circuit state after reconciling the cached state
// object against canonical storage.
func (cb *CircuitBreaker) State(ctx context.Context) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reconcileLocked(ctx)
	return cb.current.state()
}

// FailMax returns the failure threshold.
func (cb *CircuitBreaker) FailMax() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failMax
}

// SetFailMax sets the failure threshold.
func (cb *CircuitBreaker) SetFailMax(n int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failMax = n
}

// ResetTimeout returns how long the circuit stays open before probing.
func (cb *CircuitBreaker) ResetTimeout() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resetTimeout
}

// SetResetTimeout sets how long the circuit stays open before probing.
func (cb *CircuitBreaker) SetResetTimeout(d time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.resetTimeout = d
}

// AddExcluded registers additional excluded-error matchers.
func (cb *CircuitBreaker) AddExcluded(matchers ...ErrorMatcher) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.excluded = append(cb.excluded, matchers...)
}

// ClearExcluded removes every excluded-error matcher.
func (cb *CircuitBreaker) ClearExcluded() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.excluded = nil
}

// Listeners returns the registered listeners in registration order.
func (cb *CircuitBreaker) Listeners() []Listener {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]Listener(nil), cb.listeners...)
}

// AddListeners registers listeners. They are notified in registration
// order.
func (cb *CircuitBreaker) AddListeners(listeners ...Listener) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listeners = append(cb.listeners, listeners...)
}

// RemoveListener unregisters the first registered listener equal to l.
func (cb *CircuitBreaker) RemoveListener(l Listener) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for i, registered := range cb.listeners {
		if registered == l {
			cb.listeners = append(cb.listeners[:i], cb.listeners[i+1:]...)
			return
		}
	}
}
