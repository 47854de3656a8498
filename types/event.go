package types

// EventType identifies a lifecycle or result event in the report
// stream.
type EventType string

const (
	EventBeginRun   EventType = "begin-test-run"
	EventBeginSuite EventType = "begin-test-ns"
	EventEndSuite   EventType = "end-test-ns"
	EventBeginTest  EventType = "begin-test"
	EventPass       EventType = "pass"
	EventFail       EventType = "fail"
	EventError      EventType = "error"
	EventLongTest   EventType = "long-test"
	EventSummary    EventType = "summary"
)

// Event is a single structured report event. Events are consumed by a
// reporting sink and never persisted by the engine.
type Event struct {
	Type  EventType
	Suite string
	Unit  string

	// Message carries assertion diagnostics for pass/fail events.
	Message string

	// Err carries the underlying error for error events.
	Err error

	// DurationMS is the elapsed wall time in fractional milliseconds
	// for long-test and summary events.
	DurationMS float64

	// Counters is set on summary events only.
	Counters *Counters

	// Total is the number of units scheduled for the run; set on
	// begin-test-run events.
	Total int
}
