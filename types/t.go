package types

import (
	"fmt"
	"io"
	"sync"
)

// T is the handle a unit body uses to signal assertion outcomes and
// write diagnostics. The engine constructs one per unit execution and
// routes its events into the run's report stream; its output writer is
// the unit's capture scope when output capture is enabled.
type T struct {
	unit   TestUnit
	out    io.Writer
	report func(Event)

	mu     sync.Mutex
	failed bool
	erred  bool
}

// NewT creates a unit handle routing events through report and
// diagnostics through out.
func NewT(unit TestUnit, out io.Writer, report func(Event)) *T {
	return &T{unit: unit, out: out, report: report}
}

// Name returns the fully qualified name of the unit under execution.
func (t *T) Name() string { return t.unit.Name() }

// Output returns the unit's diagnostics writer.
func (t *T) Output() io.Writer { return t.out }

// Logf writes a formatted diagnostic line to the unit's output scope.
func (t *T) Logf(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

// Pass records a passing assertion.
func (t *T) Pass(msg string) {
	t.report(t.event(EventPass, msg, nil))
}

// Fail records a failing assertion.
func (t *T) Fail(msg string) {
	t.markFailed()
	t.report(t.event(EventFail, msg, nil))
}

// Failf records a failing assertion with a formatted message.
func (t *T) Failf(format string, args ...any) {
	t.Fail(fmt.Sprintf(format, args...))
}

// Error records an unexpected error raised by the unit.
func (t *T) Error(err error) {
	t.mu.Lock()
	t.failed = true
	t.erred = true
	t.mu.Unlock()
	t.report(t.event(EventError, "", err))
}

// Errorf records an unexpected error with a formatted message.
func (t *T) Errorf(format string, args ...any) {
	t.Error(fmt.Errorf(format, args...))
}

// Check records a pass or a fail depending on cond.
func (t *T) Check(cond bool, msg string) {
	if cond {
		t.Pass(msg)
		return
	}
	t.Fail(msg)
}

// Failed reports whether the unit has recorded a failure or error.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Status returns the unit's outcome so far. Errors take precedence
// over plain assertion failures.
func (t *T) Status() TestStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.erred:
		return TestStatusError
	case t.failed:
		return TestStatusFail
	default:
		return TestStatusPass
	}
}

func (t *T) markFailed() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

func (t *T) event(typ EventType, msg string, err error) Event {
	ev := Event{Type: typ, Unit: t.unit.ID, Message: msg, Err: err}
	if t.unit.Suite != nil {
		ev.Suite = t.unit.Suite.ID
	}
	return ev
}
