package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/testlane/testlane/metrics"
	"github.com/testlane/testlane/types"
)

// composeFixtures collapses an ordered fixture chain into a single
// fixture with the first element outermost. An empty chain composes
// to a pass-through.
func composeFixtures(fixtures []types.Fixture) types.Fixture {
	return func(next func()) {
		run := next
		for i := len(fixtures) - 1; i >= 0; i-- {
			f, inner := fixtures[i], run
			run = func() { f(inner) }
		}
		run()
	}
}

// runUnitSafe executes one unit and converts a panic escaping its
// wrappers (an each-fixture, typically) into an error. Such a panic
// is not a test failure: it crosses the pool boundary and aborts the
// suite's run.
func (r *Runner) runUnitSafe(ctx context.Context, rc *runContext, suite *types.Suite, unit types.TestUnit) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unit %s: unexpected panic: %v", unit.Name(), rec)
		}
	}()
	r.runUnit(ctx, rc, suite, unit)
	return nil
}

// runUnit wraps a single admitted unit in its capture scope, the
// suite's each-fixtures and the timing wrapper, then invokes the
// body. Assertion failures and errors are reported through the run
// context; they never abort sibling units.
func (r *Runner) runUnit(ctx context.Context, rc *runContext, suite *types.Suite, unit types.TestUnit) {
	_, span := r.tracer.Start(ctx, fmt.Sprintf("unit %s", unit.Name()))
	defer span.End()

	rc.Report(types.Event{Type: types.EventBeginTest, Suite: suite.ID, Unit: unit.ID})

	var out io.Writer = r.syncOutput()
	var capture *tailBuffer
	if !r.cfg.NoCapture {
		capture = newTailBuffer(0)
		out = capture
	}

	t := types.NewT(unit, out, rc.Report)

	completed := false
	defer func() {
		// The capture scope is torn down on every exit path. Buffered
		// output is forwarded only when the unit failed, errored, or
		// its wrappers blew up; it is discarded on pass.
		if capture != nil && (t.Failed() || !completed) {
			r.flushCapture(unit, capture)
		}
		status := t.Status()
		if !completed && status == types.TestStatusPass {
			status = types.TestStatusError
		}
		metrics.RecordUnit(rc.runID, suite.ID, status)
	}()

	invoke := func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Errorf("panic: %v", rec)
			}
		}()
		unit.Body(t)
	}

	each := composeFixtures(suite.EachFixtures)

	start := time.Now()
	each(invoke)
	elapsed := time.Since(start)

	if warn := r.cfg.TestWarnTime; warn > 0 && elapsed >= warn && !unit.Slow {
		rc.Report(types.Event{
			Type:       types.EventLongTest,
			Suite:      suite.ID,
			Unit:       unit.ID,
			DurationMS: durationMS(elapsed),
		})
	}
	completed = true
}

// flushCapture forwards a failed unit's buffered output to the real
// output stream in a single write, so flushes from concurrent
// workers never interleave.
func (r *Runner) flushCapture(unit types.TestUnit, buf *tailBuffer) {
	data := buf.Bytes()
	if len(data) == 0 {
		return
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "\n--- output from %s ---\n", unit.Name())
	msg.Write(data)
	if buf.Truncated() {
		fmt.Fprintf(&msg, "\n--- output truncated, %d bytes written in total ---\n", buf.TotalBytes())
	}
	_, _ = r.syncOutput().Write(msg.Bytes())
}
