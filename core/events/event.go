package events

// Event is a typed notification describing a committed farm state change.
type Event interface {
	EventType() string
}

// Emitter delivers events to subscribers such as recorders, metrics or the
// query server.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}
