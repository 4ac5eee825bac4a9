package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"farmchain/core/events"
)

type namedEvent string

func (e namedEvent) EventType() string { return string(e) }

func TestCountingEmitterForwardsAndCounts(t *testing.T) {
	recorder := events.NewRecorder(nil)
	emitter := &CountingEmitter{metrics: newEventMetrics(prometheus.NewRegistry()), next: recorder}

	emitter.Emit(namedEvent("farming.deposit.opened"))
	emitter.Emit(namedEvent("farming.deposit.opened"))
	emitter.Emit(namedEvent(""))
	emitter.Emit(nil)

	require.Equal(t, []string{"farming.deposit.opened", "farming.deposit.opened", ""}, recorder.Types())
	require.Equal(t, 2.0, testutil.ToFloat64(emitter.metrics.emitted.WithLabelValues("farming.deposit.opened")))
	require.Equal(t, 1.0, testutil.ToFloat64(emitter.metrics.emitted.WithLabelValues("unknown")))
}
