package runner

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlane/testlane/reporting"
	"github.com/testlane/testlane/types"
)

// recordingSink collects the event stream for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSink) Report(ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) byType(typ types.EventType) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Event
	for _, ev := range s.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func testRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	if cfg.Log == nil {
		cfg.Log = log.NewLogger(log.DiscardHandler())
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Report == nil {
		cfg.Report = reporting.NewNullSink()
	}
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	return r
}

func passingUnit(id string) types.TestUnit {
	return types.TestUnit{ID: id, Body: func(t *types.T) { t.Pass("ok") }}
}

func failingUnit(id string) types.TestUnit {
	return types.TestUnit{ID: id, Body: func(t *types.T) { t.Fail("boom") }}
}

func TestRunEmptyInput(t *testing.T) {
	sink := &recordingSink{}
	r := testRunner(t, Config{Report: sink})

	summary, err := r.Run(context.Background(), nil)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, SummaryType, summary.Type)
	assert.Equal(t, types.Counters{}, summary.Counters)
	assert.Empty(t, sink.events, "empty input must not emit any events")
}

func TestRunCountsAcrossSuites(t *testing.T) {
	suiteA := types.NewSuite("alpha")
	suiteA.Add(passingUnit("a1")).Add(passingUnit("a2")).Add(failingUnit("a3"))
	suiteB := types.NewSuite("beta")
	suiteB.Add(passingUnit("b1")).Add(passingUnit("b2"))

	sink := &recordingSink{}
	r := testRunner(t, Config{Report: sink})

	summary, err := r.Run(context.Background(), types.Flatten(suiteA, suiteB))

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Test)
	assert.Equal(t, 4, summary.Pass)
	assert.Equal(t, 1, summary.Fail)
	assert.Equal(t, 0, summary.Error)
	assert.True(t, summary.Failed())

	assert.Len(t, sink.byType(types.EventBeginRun), 1)
	assert.Len(t, sink.byType(types.EventBeginSuite), 2)
	assert.Len(t, sink.byType(types.EventEndSuite), 2)
	assert.Len(t, sink.byType(types.EventSummary), 1)
}

func TestSummaryEqualsEventStreamCounts(t *testing.T) {
	suiteA := types.NewSuite("alpha")
	for _, id := range []string{"a1", "a2", "a3"} {
		suiteA.Add(passingUnit(id))
	}
	suiteB := types.NewSuite("beta")
	suiteB.Add(failingUnit("b1"))
	suiteB.Add(types.TestUnit{ID: "b2", Body: func(t *types.T) {
		t.Errorf("unexpected condition")
	}})

	sink := &recordingSink{}
	r := testRunner(t, Config{Report: sink})

	summary, err := r.Run(context.Background(), types.Flatten(suiteA, suiteB))
	require.NoError(t, err)

	fromStream := types.Counters{
		Test:  len(sink.byType(types.EventBeginTest)),
		Pass:  len(sink.byType(types.EventPass)),
		Fail:  len(sink.byType(types.EventFail)),
		Error: len(sink.byType(types.EventError)),
	}
	assert.Equal(t, fromStream, summary.Counters,
		"summary counters must equal the key-wise sum over the event stream")

	summaries := sink.byType(types.EventSummary)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].Counters)
	assert.Equal(t, summary.Counters, *summaries[0].Counters)
}

func TestBodyPanicIsReportedAsError(t *testing.T) {
	suite := types.NewSuite("panicky")
	suite.Add(types.TestUnit{ID: "kaboom", Body: func(t *types.T) {
		panic("kaboom")
	}})
	suite.Add(passingUnit("survivor"))

	sink := &recordingSink{}
	r := testRunner(t, Config{Report: sink, Serial: true})

	summary, err := r.Run(context.Background(), suite.TestUnits())

	require.NoError(t, err, "a panic inside a body is a reported error, not a fatal one")
	assert.Equal(t, 2, summary.Test)
	assert.Equal(t, 1, summary.Pass)
	assert.Equal(t, 1, summary.Error)
}

func TestGroupBySuitePreservesOrder(t *testing.T) {
	suiteA := types.NewSuite("alpha")
	suiteA.Add(passingUnit("a1")).Add(passingUnit("a2"))
	suiteB := types.NewSuite("beta")
	suiteB.Add(passingUnit("b1"))

	// Interleave discovery order across suites.
	units := []types.TestUnit{
		suiteA.Units[0],
		suiteB.Units[0],
		suiteA.Units[1],
	}

	groups := groupBySuite(units)
	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].suite.ID)
	assert.Equal(t, []string{"a1", "a2"}, unitIDs(groups[0].units))
	assert.Equal(t, "beta", groups[1].suite.ID)
	assert.Equal(t, []string{"b1"}, unitIDs(groups[1].units))
}

func TestGroupBySuiteDefaultsOrphans(t *testing.T) {
	units := []types.TestUnit{
		{ID: "u1", Body: func(t *types.T) {}},
		{ID: "u2", Body: func(t *types.T) {}},
	}

	groups := groupBySuite(units)
	require.Len(t, groups, 1)
	assert.Equal(t, "default", groups[0].suite.ID)
	assert.Equal(t, []string{"u1", "u2"}, unitIDs(groups[0].units))
}

func TestGroupBySuiteEmpty(t *testing.T) {
	assert.Empty(t, groupBySuite(nil))
}

func TestMergeCounters(t *testing.T) {
	total := mergeCounters([]types.Counters{
		{Test: 3, Pass: 2, Fail: 1},
		{Test: 2, Pass: 1, Error: 1},
	})
	assert.Equal(t, types.Counters{Test: 5, Pass: 3, Fail: 1, Error: 1}, total)
}

func TestNewRunnerRejectsNegativeConcurrency(t *testing.T) {
	_, err := NewRunner(Config{
		Log:         log.NewLogger(log.DiscardHandler()),
		Concurrency: -1,
	})
	require.Error(t, err)
}

func unitIDs(units []types.TestUnit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
