package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"farmchain/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted farming events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = newEventMetrics(prometheus.DefaultRegisterer)
	})
	return eventRegistry
}

func newEventMetrics(reg prometheus.Registerer) *eventMetrics {
	m := &eventMetrics{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farming",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Count of committed farming events segmented by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.emitted)
	}
	return m
}

// RecordEvent increments the counter for the supplied event type.
func (m *eventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// CountingEmitter counts every event before handing it to the next emitter.
type CountingEmitter struct {
	metrics *eventMetrics
	next    events.Emitter
}

// NewCountingEmitter wraps next. A nil next drops events after counting.
func NewCountingEmitter(next events.Emitter) *CountingEmitter {
	return &CountingEmitter{metrics: Events(), next: next}
}

func (e *CountingEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	e.metrics.RecordEvent(evt.EventType())
	if e.next != nil {
		e.next.Emit(evt)
	}
}
