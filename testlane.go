// Package testlane provides the service facade around the
// test-execution engine: it resolves test sources, runs them once or
// on an interval, and keeps the latest run summary.
package testlane

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/testlane/testlane/runner"
	"github.com/testlane/testlane/types"
)

// Config configures the service.
type Config struct {
	Log log.Logger

	// Runner is the engine configuration for every scheduled run.
	Runner runner.Config

	// RunInterval is the pause between two runs in continuous mode.
	RunInterval time.Duration

	// RunOnce makes Start perform a single run and return.
	RunOnce bool
}

// Service runs the configured test sources periodically or once.
type Service struct {
	config  *Config
	runner  *runner.Runner
	sources []types.Source

	mu      sync.Mutex
	summary *runner.Summary

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a service executing the given sources.
func New(config *Config, sources ...types.Source) (*Service, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
	}
	if config.Runner.Log == nil {
		config.Runner.Log = config.Log
	}
	if !config.RunOnce && config.RunInterval <= 0 {
		return nil, errors.New("run interval is required in continuous mode")
	}

	r, err := runner.NewRunner(config.Runner)
	if err != nil {
		return nil, err
	}

	config.Log.Debug("Creating service", "runOnce", config.RunOnce,
		"runInterval", config.RunInterval, "sources", len(sources))

	return &Service{
		config:  config,
		runner:  r,
		sources: sources,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the tests immediately and, in continuous mode, keeps
// re-running them at the configured interval until Stop is called.
// In run-once mode it returns a FailureError when the summary
// contains failures, and a RunError when the engine aborted.
func (s *Service) Start(ctx context.Context) error {
	s.done = make(chan struct{})
	s.running.Store(true)

	if s.config.RunOnce {
		s.config.Log.Info("Starting test service in run-once mode")
	} else {
		s.config.Log.Info("Starting test service in continuous mode", "interval", s.config.RunInterval)
	}

	if err := s.runTests(ctx); err != nil {
		s.running.Store(false)
		return err
	}

	if s.config.RunOnce {
		s.running.Store(false)
		if summary := s.Summary(); summary != nil && summary.Failed() {
			return NewFailureError(fmt.Sprintf("%d failed, %d errored of %d tests",
				summary.Fail, summary.Error, summary.Test))
		}
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Log.Debug("Starting periodic test runner goroutine", "interval", s.config.RunInterval)

		for {
			select {
			case <-time.After(s.config.RunInterval):
				if !s.running.Load() {
					return
				}
				s.config.Log.Info("Running periodic tests")
				if err := s.runTests(ctx); err != nil {
					s.config.Log.Error("Error running periodic tests", "error", err)
				}

			case <-s.done:
				s.config.Log.Debug("Done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				s.config.Log.Debug("Context canceled, stopping periodic test runner")
				s.running.Store(false)
				return
			}
		}
	}()
	return nil
}

// runTests performs one engine run and stores its summary.
func (s *Service) runTests(ctx context.Context) error {
	summary, err := s.runner.RunSources(ctx, s.sources...)
	if err != nil {
		return NewRunError(err)
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	return nil
}

// Summary returns the most recent run summary, or nil before the
// first completed run.
func (s *Service) Summary() *runner.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Stop halts periodic execution and waits for the runner goroutine.
func (s *Service) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	close(s.done)
	s.wg.Wait()
	s.config.Log.Info("Test service stopped")
	return nil
}

// Stopped reports whether the service has been stopped.
func (s *Service) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until the periodic runner has exited or the
// context is done.
func (s *Service) WaitForShutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
