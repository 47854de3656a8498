package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/testlane/testlane/types"
)

// ProgressSink is the built-in report sink. It prints one character
// per assertion result as the run progresses, expands failure and
// error diagnostics as they happen, and renders a summary table when
// the run completes.
type ProgressSink struct {
	w io.Writer

	suite    string
	failures []types.Event
	suites   []suiteLine
	current  *suiteLine
}

type suiteLine struct {
	id       string
	started  time.Time
	duration time.Duration
	counters types.Counters
}

// NewProgressSink creates a progress sink writing to w. A nil writer
// defaults to stdout.
func NewProgressSink(w io.Writer) *ProgressSink {
	if w == nil {
		w = os.Stdout
	}
	return &ProgressSink{w: w}
}

// Report implements Sink.
func (p *ProgressSink) Report(ev types.Event) {
	switch ev.Type {
	case types.EventBeginRun:
		fmt.Fprintf(p.w, "Running %d tests\n", ev.Total)
	case types.EventBeginSuite:
		p.beginSuite(ev)
	case types.EventEndSuite:
		p.endSuite()
	case types.EventPass:
		p.count(func(c *types.Counters) { c.Pass++ })
		fmt.Fprint(p.w, ".")
	case types.EventFail:
		p.count(func(c *types.Counters) { c.Fail++ })
		fmt.Fprint(p.w, text.FgRed.Sprint("F"))
		p.failures = append(p.failures, ev)
	case types.EventError:
		p.count(func(c *types.Counters) { c.Error++ })
		fmt.Fprint(p.w, text.FgRed.Sprint("E"))
		p.failures = append(p.failures, ev)
	case types.EventBeginTest:
		p.count(func(c *types.Counters) { c.Test++ })
	case types.EventLongTest:
		fmt.Fprintf(p.w, "\n%s %s took %.1fms\n",
			text.FgYellow.Sprint("LONG"), ev.Unit, ev.DurationMS)
	case types.EventSummary:
		p.printFailures()
		p.printSummary(ev)
	}
}

func (p *ProgressSink) beginSuite(ev types.Event) {
	p.suite = ev.Suite
	p.suites = append(p.suites, suiteLine{id: ev.Suite, started: time.Now()})
	p.current = &p.suites[len(p.suites)-1]
	fmt.Fprintf(p.w, "\n%s ", ev.Suite)
}

func (p *ProgressSink) endSuite() {
	if p.current != nil {
		p.current.duration = time.Since(p.current.started)
		p.current = nil
	}
	fmt.Fprintln(p.w)
}

func (p *ProgressSink) count(update func(*types.Counters)) {
	if p.current != nil {
		update(&p.current.counters)
	}
}

func (p *ProgressSink) printFailures() {
	for _, ev := range p.failures {
		header := text.FgRed.Sprintf("FAIL %s/%s", ev.Suite, ev.Unit)
		fmt.Fprintf(p.w, "\n%s\n", header)
		if ev.Message != "" {
			fmt.Fprintf(p.w, "    %s\n", ev.Message)
		}
		if ev.Err != nil {
			fmt.Fprintf(p.w, "    %v\n", ev.Err)
		}
	}
}

func (p *ProgressSink) printSummary(ev types.Event) {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetTitle(fmt.Sprintf("Test Run Results (%.1fms)", ev.DurationMS))

	t.AppendHeader(table.Row{"Suite", "Duration", "Tests", "Passed", "Failed", "Errors"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
	})

	for _, s := range p.suites {
		t.AppendRow(table.Row{
			s.id,
			formatDuration(s.duration),
			s.counters.Test,
			s.counters.Pass,
			s.counters.Fail,
			s.counters.Error,
		})
	}

	counters := types.Counters{}
	if ev.Counters != nil {
		counters = *ev.Counters
	}
	if counters.Failed() {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%.1fms", ev.DurationMS),
		counters.Test,
		counters.Pass,
		counters.Fail,
		counters.Error,
	})
	t.Render()
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
