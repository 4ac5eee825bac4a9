package events

import (
	"sync"

	"farmchain/core/types"
)

// Payload is implemented by events that carry a structured body.
type Payload interface {
	Event() *types.Event
}

// Recorder keeps every emitted event in memory, optionally forwarding them to
// another emitter.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   Emitter
}

// NewRecorder returns a recorder that forwards to next when it is not nil.
func NewRecorder(next Emitter) *Recorder {
	return &Recorder{next: next}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if evt == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Emit(evt)
	}
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

// Payloads returns the structured bodies of the recorded events that have
// one.
func (r *Recorder) Payloads() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, 0, len(r.events))
	for _, evt := range r.events {
		if p, ok := evt.(Payload); ok && p.Event() != nil {
			out = append(out, p.Event())
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
