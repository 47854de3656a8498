package testlane

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlane/testlane/reporting"
	"github.com/testlane/testlane/runner"
	"github.com/testlane/testlane/types"
)

func quietConfig() *Config {
	return &Config{
		Log: log.NewLogger(log.DiscardHandler()),
		Runner: runner.Config{
			Report: reporting.NewNullSink(),
			Output: io.Discard,
		},
		RunOnce: true,
	}
}

func passingSuite(hits *atomic.Int64) *types.Suite {
	suite := types.NewSuite("service")
	suite.Add(types.TestUnit{ID: "ok", Body: func(t *types.T) {
		hits.Add(1)
		t.Pass("holds")
	}})
	return suite
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "config is required")

	cfg := quietConfig()
	cfg.RunOnce = false
	_, err = New(cfg)
	require.ErrorContains(t, err, "run interval is required")
}

func TestRunOncePassing(t *testing.T) {
	var hits atomic.Int64
	svc, err := New(quietConfig(), passingSuite(&hits))
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, int64(1), hits.Load())
	assert.True(t, svc.Stopped())

	summary := svc.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Test)
	assert.Equal(t, 1, summary.Pass)
	assert.False(t, summary.Failed())
}

func TestRunOnceFailing(t *testing.T) {
	suite := types.NewSuite("service")
	suite.Add(types.TestUnit{ID: "bad", Body: func(t *types.T) {
		t.Fail("breaks")
	}})

	svc, err := New(quietConfig(), suite)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsFailureError(err))
	assert.ErrorContains(t, err, "1 failed, 0 errored of 1 tests")

	summary := svc.Summary()
	require.NotNil(t, summary)
	assert.True(t, summary.Failed())
}

func TestRunOnceEngineError(t *testing.T) {
	suite := types.NewSuite("service")
	suite.OnceFixture(func(next func()) {
		panic("bad fixture")
	})
	suite.Add(types.TestUnit{ID: "never", Body: func(t *types.T) {}})

	svc, err := New(quietConfig(), suite)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRunError(err))
	assert.False(t, IsFailureError(err))
	assert.Nil(t, svc.Summary())
}

func TestContinuousRunsAndStops(t *testing.T) {
	var hits atomic.Int64
	cfg := quietConfig()
	cfg.RunOnce = false
	cfg.RunInterval = 10 * time.Millisecond

	svc, err := New(cfg, passingSuite(&hits))
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	assert.False(t, svc.Stopped())

	require.Eventually(t, func() bool {
		return hits.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop())
	assert.True(t, svc.Stopped())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.WaitForShutdown(shutdownCtx))

	after := hits.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, hits.Load())
}

func TestContinuousContextCancel(t *testing.T) {
	var hits atomic.Int64
	cfg := quietConfig()
	cfg.RunOnce = false
	cfg.RunInterval = 10 * time.Millisecond

	svc, err := New(cfg, passingSuite(&hits))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	cancel()

	require.Eventually(t, svc.Stopped, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop())
}

func TestErrorHelpers(t *testing.T) {
	runErr := NewRunError(errors.New("boom"))
	assert.True(t, IsRunError(runErr))
	assert.False(t, IsFailureError(runErr))
	assert.EqualError(t, runErr, "run error: boom")
	assert.EqualError(t, errors.Unwrap(runErr), "boom")

	failErr := NewFailureError("2 failed")
	assert.True(t, IsFailureError(failErr))
	assert.False(t, IsRunError(failErr))
	assert.EqualError(t, failErr, "test failure: 2 failed")

	assert.False(t, IsRunError(nil))
	assert.False(t, IsFailureError(nil))
}
