package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock is a Clock whose time only moves when the test advances it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// event is a recorded listener notification.
type event struct {
	kind string // "before", "success", "failure", "change"
	from State
	to   State
	err  error
}

// recordListener records every notification in order.
type recordListener struct {
	mu     sync.Mutex
	name   string
	events []event
	log    *[]string // shared across listeners to verify dispatch order
}

func (l *recordListener) record(e event, tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if l.log != nil {
		*l.log = append(*l.log, l.name+":"+tag)
	}
}

func (l *recordListener) BeforeCall(ctx context.Context, cb *CircuitBreaker) {
	l.record(event{kind: "before"}, "before")
}

func (l *recordListener) Success(ctx context.Context, cb *CircuitBreaker) {
	l.record(event{kind: "success"}, "success")
}

func (l *recordListener) Failure(ctx context.Context, cb *CircuitBreaker, err error) {
	l.record(event{kind: "failure", err: err}, "failure")
}

func (l *recordListener) StateChange(ctx context.Context, cb *CircuitBreaker, from, to State) {
	l.record(event{kind: "change", from: from, to: to}, "change:"+from.String()+">"+to.String())
}

func (l *recordListener) changes() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event
	for _, e := range l.events {
		if e.kind == "change" {
			out = append(out, e)
		}
	}
	return out
}

func (l *recordListener) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

var errBoom = errors.New("dependency failed")

// failingOp returns an operation that fails with err and counts its
// invocations.
func failingOp(err error, calls *int) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return err
	}
}

// succeedingOp returns an operation that succeeds and counts its
// invocations.
func succeedingOp(calls *int) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return nil
	}
}
