package breaker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestListeners_NotificationSequence(t *testing.T) {
	ctx := context.Background()
	var log []string
	l1 := &recordListener{name: "l1", log: &log}
	l2 := &recordListener{name: "l2", log: &log}
	cb, _ := newTestBreaker(Config{
		FailMax:   2,
		Listeners: []Listener{l1, l2},
	})

	calls := 0
	if err := cb.Call(ctx, succeedingOp(&calls)); err != nil {
		t.Fatalf("call returned error: %v", err)
	}
	_ = cb.Call(ctx, failingOp(errBoom, &calls))
	_ = cb.Call(ctx, failingOp(errBoom, &calls)) // trips

	want := []string{
		"l1:before", "l2:before", "l1:success", "l2:success",
		"l1:before", "l2:before", "l1:failure", "l2:failure",
		"l1:before", "l2:before", "l1:failure", "l2:failure",
		"l1:change:closed>open", "l2:change:closed>open",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("notification order:\n got %v\nwant %v", log, want)
	}
}

func TestListeners_NoBeforeCallOnRejection(t *testing.T) {
	ctx := context.Background()
	l := &recordListener{name: "l"}
	cb, _ := newTestBreaker(Config{Listeners: []Listener{l}})
	cb.Open(ctx)

	calls := 0
	_ = cb.Call(ctx, succeedingOp(&calls))

	if got := l.count("before"); got != 0 {
		t.Errorf("BeforeCall fired %d times for a rejected call, want 0", got)
	}
	if got := l.count("failure"); got != 0 {
		t.Errorf("Failure fired %d times for a rejected call, want 0", got)
	}
}

func TestListeners_StateChangeOncePerTransition(t *testing.T) {
	ctx := context.Background()
	l := &recordListener{name: "l"}
	cb, clock := newTestBreaker(Config{
		FailMax:      1,
		ResetTimeout: 5 * time.Second,
		Listeners:    []Listener{l},
	})

	calls := 0
	_ = cb.Call(ctx, failingOp(errBoom, &calls)) // closed -> open
	clock.Advance(5 * time.Second)
	_ = cb.Call(ctx, succeedingOp(&calls)) // open -> half-open -> closed

	changes := l.changes()
	wantPairs := [][2]State{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(changes) != len(wantPairs) {
		t.Fatalf("got %d state changes, want %d: %+v", len(changes), len(wantPairs), changes)
	}
	for i, want := range wantPairs {
		if changes[i].from != want[0] || changes[i].to != want[1] {
			t.Errorf("change %d = %v>%v, want %v>%v",
				i, changes[i].from, changes[i].to, want[0], want[1])
		}
	}
}

func TestAddRemoveListeners(t *testing.T) {
	ctx := context.Background()
	l1 := &recordListener{name: "l1"}
	l2 := &recordListener{name: "l2"}
	cb, _ := newTestBreaker(Config{})

	cb.AddListeners(l1, l2)
	if got := len(cb.Listeners()); got != 2 {
		t.Fatalf("Listeners() length = %d, want 2", got)
	}

	cb.RemoveListener(l1)
	calls := 0
	_ = cb.Call(ctx, succeedingOp(&calls))

	if got := l1.count("success"); got != 0 {
		t.Errorf("removed listener notified %d times", got)
	}
	if got := l2.count("success"); got != 1 {
		t.Errorf("remaining listener notified %d times, want 1", got)
	}
}

func TestLoggingListener(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb, _ := newTestBreaker(Config{
		Name:      "payments",
		FailMax:   1,
		Listeners: []Listener{NewLoggingListener(logger)},
	})

	calls := 0
	_ = cb.Call(ctx, failingOp(errBoom, &calls))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2 (failure + state change):\n%s", len(lines), buf.String())
	}

	var failure struct {
		Level   string `json:"level"`
		Msg     string `json:"msg"`
		Circuit string `json:"circuit"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &failure); err != nil {
		t.Fatalf("unmarshal failure line: %v", err)
	}
	if failure.Level != "DEBUG" || failure.Msg != "circuit breaker call failed" {
		t.Errorf("failure line = %+v", failure)
	}
	if failure.Circuit != "payments" || failure.Error != errBoom.Error() {
		t.Errorf("failure line attrs = %+v", failure)
	}

	var change struct {
		Level   string `json:"level"`
		Msg     string `json:"msg"`
		Circuit string `json:"circuit"`
		From    string `json:"from"`
		To      string `json:"to"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &change); err != nil {
		t.Fatalf("unmarshal state-change line: %v", err)
	}
	if change.Level != "WARN" || change.Msg != "circuit breaker state changed" {
		t.Errorf("state-change line = %+v", change)
	}
	if change.Circuit != "payments" || change.From != "closed" || change.To != "open" {
		t.Errorf("state-change attrs = %+v", change)
	}
}

func TestTracingListener_NoRecordingSpan(t *testing.T) {
	// A context without a span yields a non-recording no-op span; the
	// listener must tolerate it.
	ctx := context.Background()
	cb, _ := newTestBreaker(Config{
		FailMax:   1,
		Listeners: []Listener{NewTracingListener()},
	})

	calls := 0
	_ = cb.Call(ctx, failingOp(errBoom, &calls))
	if err := cb.Call(WithSkip(ctx), succeedingOp(&calls)); err != nil {
		t.Fatalf("skipped call returned error: %v", err)
	}
}
