// Package reporting provides the event sinks the engine streams
// lifecycle and result events into. Sinks are invoked under the run
// context's lock, so implementations need not be safe for concurrent
// use themselves.
package reporting

import "github.com/testlane/testlane/types"

// Sink consumes the structured event stream of a test run.
type Sink interface {
	Report(ev types.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev types.Event)

// Report implements Sink.
func (f SinkFunc) Report(ev types.Event) { f(ev) }

// nullSink discards every event.
type nullSink struct{}

func (nullSink) Report(types.Event) {}

// NewNullSink returns a sink that discards every event.
func NewNullSink() Sink { return nullSink{} }
