// Package runner implements the test-execution engine: it partitions
// discovered units by suite, wraps them in fixtures, output capture
// and timing, dispatches them serially or through per-suite worker
// pools, and merges per-suite counters into the run summary.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/testlane/testlane/metrics"
	"github.com/testlane/testlane/reporting"
	"github.com/testlane/testlane/types"
)

// Config holds configuration for creating a new Runner. The zero
// value keeps the defaults: pooled dispatch on, output capture on,
// fail-fast off.
type Config struct {
	Log log.Logger

	// Report receives the run's event stream. Defaults to the
	// built-in progress sink writing to Output.
	Report reporting.Sink

	// Output is the real output stream captured unit output is
	// flushed to on failure. Defaults to stdout.
	Output io.Writer

	// Serial disables the per-suite worker pools; every unit runs
	// sequentially in discovery order.
	Serial bool

	// NoCapture disables scoped output capture; unit diagnostics are
	// written straight to Output.
	NoCapture bool

	// FailFast stops admitting new units once a failure or error has
	// been observed. Units already dispatched are never retracted.
	FailFast bool

	// TestWarnTime, when non-zero, is the elapsed-time threshold
	// above which a non-slow unit triggers a long-test warning event.
	TestWarnTime time.Duration

	// Concurrency overrides the per-suite pool size. Zero means
	// hardware parallelism plus two.
	Concurrency int
}

// Runner executes test units according to its configuration.
type Runner struct {
	cfg    Config
	log    log.Logger
	out    *lockedWriter
	tracer trace.Tracer

	// syncMu is the single shared lock exempt units run under.
	syncMu sync.Mutex
}

// NewRunner creates a runner, applying defaults to the config.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Report == nil {
		cfg.Report = reporting.NewProgressSink(cfg.Output)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative")
	}

	cfg.Log.Debug("NewRunner()", "serial", cfg.Serial, "failFast", cfg.FailFast,
		"noCapture", cfg.NoCapture, "testWarnTime", cfg.TestWarnTime, "concurrency", cfg.Concurrency)

	return &Runner{
		cfg:    cfg,
		log:    cfg.Log.New("component", "runner"),
		out:    &lockedWriter{w: cfg.Output},
		tracer: otel.Tracer("test runner"),
	}, nil
}

// Run executes a flat collection of test units, suite by suite, and
// returns the run summary. A panic escaping a unit's fixtures aborts
// the run: the error is returned and no summary is produced.
func (r *Runner) Run(ctx context.Context, units []types.TestUnit) (*Summary, error) {
	// The run ID is captured into the run context before any dispatch.
	// Workers abandoned by a forced teardown may outlive this call, so
	// they must only ever see the immutable copy.
	runID := uuid.New().String()

	start := time.Now()
	if len(units) == 0 {
		r.log.Info("No tests found", "run_id", runID)
		return emptySummary(), nil
	}

	ctx, span := r.tracer.Start(ctx, "test run")
	defer span.End()

	r.log.Debug("Running tests", "run_id", runID, "units", len(units))

	rc := newRunContext(r.cfg.Report, runID)
	rc.Report(types.Event{Type: types.EventBeginRun, Total: len(units)})

	groups := groupBySuite(units)
	perSuite := make([]types.Counters, 0, len(groups))
	for _, g := range groups {
		counters, err := r.runSuite(ctx, rc, g)
		if err != nil {
			metrics.RecordError(err)
			return nil, fmt.Errorf("running suite %s: %w", g.suite.ID, err)
		}
		perSuite = append(perSuite, counters)
	}

	total := mergeCounters(perSuite)
	duration := time.Since(start)
	summary := newSummary(total, duration)

	rc.Report(types.Event{
		Type:       types.EventSummary,
		Counters:   &total,
		DurationMS: summary.DurationMS,
	})
	metrics.RecordRun(runID, total, duration)

	r.log.Info("Test run completed", "run_id", runID, "tests", total.Test,
		"passed", total.Pass, "failed", total.Fail, "errors", total.Error, "duration", duration)
	return summary, nil
}

// RunSources resolves any mix of sources to the flat unit collection
// and runs it.
func (r *Runner) RunSources(ctx context.Context, sources ...types.Source) (*Summary, error) {
	return r.Run(ctx, types.Flatten(sources...))
}

// runSuite executes one suite: once-fixtures around the whole
// scheduling step, begin/end suite events, and the per-suite counter
// delta for the aggregator.
func (r *Runner) runSuite(ctx context.Context, rc *runContext, g suiteGroup) (types.Counters, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", g.suite.ID))
	defer span.End()

	r.log.Debug("Running suite", "suite", g.suite.ID, "units", len(g.units))
	before := rc.snapshot()
	rc.Report(types.Event{Type: types.EventBeginSuite, Suite: g.suite.ID})

	var runErr error
	once := composeFixtures(g.suite.OnceFixtures)
	func() {
		// A panic in a once-fixture is a harness defect, not a unit
		// outcome. It aborts the run the same way an each-fixture panic
		// escaping the pool does.
		defer func() {
			if rec := recover(); rec != nil {
				runErr = fmt.Errorf("suite %s: fixture panic: %v", g.suite.ID, rec)
			}
		}()
		once(func() {
			runErr = r.scheduleUnits(ctx, rc, g)
		})
	}()
	if runErr != nil {
		return types.Counters{}, runErr
	}

	rc.Report(types.Event{Type: types.EventEndSuite, Suite: g.suite.ID})
	return rc.snapshot().Diff(before), nil
}

// suiteGroup is one suite together with its admitted units in
// discovery order.
type suiteGroup struct {
	suite *types.Suite
	units []types.TestUnit
}

// groupBySuite partitions the flat unit collection by owning suite,
// preserving per-suite discovery order and first-appearance suite
// order. Units without an owning suite are grouped under a shared
// default suite.
func groupBySuite(units []types.TestUnit) []suiteGroup {
	var defaultSuite *types.Suite
	index := make(map[*types.Suite]int)
	var groups []suiteGroup

	for _, u := range units {
		suite := u.Suite
		if suite == nil {
			if defaultSuite == nil {
				defaultSuite = types.NewSuite("default")
			}
			suite = defaultSuite
			u.Suite = suite
		}
		i, ok := index[suite]
		if !ok {
			i = len(groups)
			index[suite] = i
			groups = append(groups, suiteGroup{suite: suite})
		}
		groups[i].units = append(groups[i].units, u)
	}
	return groups
}

// syncOutput returns the mutex-guarded real output stream.
func (r *Runner) syncOutput() io.Writer {
	return r.out
}

// lockedWriter serializes writes to the real output stream across
// worker goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
