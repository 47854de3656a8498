package runner

import (
	"context"
	"runtime"
	"sync"

	"github.com/testlane/testlane/types"
)

// unitTask is one parallel unit submitted to a suite's worker pool.
// Its done channel carries the execution outcome: nil for a completed
// unit (reported failures included), an error only when a panic
// escaped the unit's wrappers.
type unitTask struct {
	unit types.TestUnit
	done chan error
}

// workerPool is the bounded per-suite pool parallel units are
// dispatched to. It lives for a single suite invocation.
type workerPool struct {
	tasks chan *unitTask
	quit  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
	killOnce  sync.Once
}

// poolSize resolves the worker count: the configured concurrency, or
// hardware parallelism plus two. The inflation accommodates units
// that block on I/O rather than pure compute.
func (r *Runner) poolSize() int {
	if r.cfg.Concurrency > 0 {
		return r.cfg.Concurrency
	}
	return runtime.NumCPU() + 2
}

// newWorkerPool starts a pool for one suite. The task queue is sized
// to the number of parallel units so submission never blocks the
// scheduling goroutine.
func (r *Runner) newWorkerPool(ctx context.Context, rc *runContext, suite *types.Suite, queue int) *workerPool {
	size := r.poolSize()
	p := &workerPool{
		tasks: make(chan *unitTask, queue),
		quit:  make(chan struct{}),
	}

	r.log.Debug("Starting worker pool", "suite", suite.ID, "size", size, "queued", queue)
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go r.worker(ctx, p, rc, suite)
	}
	return p
}

// worker processes queued unit tasks until the queue is drained, the
// pool is killed or the context is cancelled.
func (r *Runner) worker(ctx context.Context, p *workerPool, rc *runContext, suite *types.Suite) {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		default:
		}

		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task.done <- r.runUnitSafe(ctx, rc, suite, task.unit)
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// submit enqueues a unit and returns its task handle. Results are
// retrieved from the handles in submission order.
func (p *workerPool) submit(unit types.TestUnit) *unitTask {
	task := &unitTask{unit: unit, done: make(chan error, 1)}
	p.tasks <- task
	return task
}

// close shuts the pool down after a normal run: no further
// submissions, workers drain the queue and exit. After a kill it
// returns immediately without waiting, abandoning in-flight units.
func (p *workerPool) close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		select {
		case <-p.quit:
		default:
			p.wg.Wait()
		}
	})
}

// kill force-stops the pool. Queued tasks are dropped and in-flight
// units are abandoned, never interrupted; teardown is best-effort
// only.
func (p *workerPool) kill() {
	p.killOnce.Do(func() {
		close(p.quit)
	})
}

// partitionUnits splits a suite's units into the exempt (sequential)
// set and the parallel set, both in discovery order. Exemption is a
// unit-level flag or inherited from the suite.
func partitionUnits(suite *types.Suite, units []types.TestUnit) (exempt, parallel []types.TestUnit) {
	for _, u := range units {
		if u.Synchronized || suite.Synchronized {
			exempt = append(exempt, u)
		} else {
			parallel = append(parallel, u)
		}
	}
	return exempt, parallel
}

// scheduleUnits runs a suite's admitted units: the exempt set first,
// strictly sequentially under the shared lock, then the parallel set
// through a fresh bounded pool. Results are retrieved in submission
// order, so a slow early unit delays observation of later, already
// finished results. The first unexpected error abandons retrieval,
// force-stops the pool and propagates.
func (r *Runner) scheduleUnits(ctx context.Context, rc *runContext, g suiteGroup) error {
	if r.cfg.Serial {
		for _, unit := range g.units {
			if !rc.admit(r.cfg.FailFast) {
				r.log.Debug("Fail-fast active, skipping unit", "unit", unit.Name())
				continue
			}
			if err := r.runUnitSafe(ctx, rc, g.suite, unit); err != nil {
				return err
			}
		}
		return nil
	}

	exempt, parallel := partitionUnits(g.suite, g.units)

	for _, unit := range exempt {
		if !rc.admit(r.cfg.FailFast) {
			r.log.Debug("Fail-fast active, skipping exempt unit", "unit", unit.Name())
			continue
		}
		r.syncMu.Lock()
		err := r.runUnitSafe(ctx, rc, g.suite, unit)
		r.syncMu.Unlock()
		if err != nil {
			return err
		}
	}

	if len(parallel) == 0 {
		return nil
	}

	pool := r.newWorkerPool(ctx, rc, g.suite, len(parallel))
	defer pool.close()

	pending := make([]*unitTask, 0, len(parallel))
	for _, unit := range parallel {
		if !rc.admit(r.cfg.FailFast) {
			r.log.Debug("Fail-fast active, skipping parallel unit", "unit", unit.Name())
			continue
		}
		pending = append(pending, pool.submit(unit))
	}

	for _, task := range pending {
		select {
		case err := <-task.done:
			if err != nil {
				pool.kill()
				return err
			}
		case <-ctx.Done():
			pool.kill()
			return ctx.Err()
		}
	}
	return nil
}
