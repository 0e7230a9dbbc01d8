package analytics

// NoopSink discards every event. This is the default: decision-event
// analytics is optional, and most deployments have no attribution store to
// write to.
type NoopSink struct{}

func (NoopSink) Record(Event)  {}
func (NoopSink) Close() error { return nil }

var _ Sink = NoopSink{}
