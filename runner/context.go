package runner

import (
	"sync"

	"github.com/testlane/testlane/reporting"
	"github.com/testlane/testlane/types"
)

// runContext is the shared mutable state of a single run: the global
// pass/fail flag, the counters and the configured sink. One mutex
// guards all three so counter updates and sink invocations from
// worker goroutines never interleave. A context is created fresh at
// the start of Run and discarded once the summary is produced.
type runContext struct {
	// runID is immutable for the context's lifetime and safe to read
	// from workers that outlive the run after a forced teardown.
	runID string

	mu       sync.Mutex
	sink     reporting.Sink
	failed   bool
	counters types.Counters
}

func newRunContext(sink reporting.Sink, runID string) *runContext {
	return &runContext{sink: sink, runID: runID}
}

// Report folds ev into the counters and forwards it to the sink under
// the context lock.
func (c *runContext) Report(ev types.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case types.EventBeginTest:
		c.counters.Test++
	case types.EventPass:
		c.counters.Pass++
	case types.EventFail:
		c.counters.Fail++
		c.failed = true
	case types.EventError:
		c.counters.Error++
		c.failed = true
	}
	c.sink.Report(ev)
}

// snapshot returns a copy of the current counters.
func (c *runContext) snapshot() types.Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// admit is the fail-fast gate, consulted once per unit at admission
// time. It never retracts work that has already been dispatched.
func (c *runContext) admit(failFast bool) bool {
	if !failFast {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.failed && c.counters.Fail == 0 && c.counters.Error == 0
}
