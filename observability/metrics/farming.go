package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// FarmingMetrics implements the farming engine's metrics hook with
// Prometheus collectors.
type FarmingMetrics struct {
	operations  *prometheus.CounterVec
	distributed *prometheus.GaugeVec
	paid        *prometheus.CounterVec
	forfeited   *prometheus.CounterVec
}

var (
	farmingOnce     sync.Once
	farmingRegistry *FarmingMetrics
)

// Farming returns the process wide farming metrics registered with the
// default Prometheus registerer.
func Farming() *FarmingMetrics {
	farmingOnce.Do(func() {
		farmingRegistry = NewFarming(prometheus.DefaultRegisterer)
	})
	return farmingRegistry
}

// NewFarming builds the farming collectors and registers them with reg.
func NewFarming(reg prometheus.Registerer) *FarmingMetrics {
	m := &FarmingMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farming",
			Name:      "operations_total",
			Help:      "Farming operations segmented by operation and result.",
		}, []string{"op", "result"}),
		distributed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "farming",
			Name:      "global_farm_distributed",
			Help:      "Rewards moved into a global farm's accumulator, net of recycled amounts.",
		}, []string{"farm"}),
		paid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farming",
			Name:      "rewards_paid_total",
			Help:      "Rewards paid to depositors by currency.",
		}, []string{"currency"}),
		forfeited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farming",
			Name:      "rewards_forfeited_total",
			Help:      "Rewards withheld by the loyalty curve by currency.",
		}, []string{"currency"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.distributed, m.paid, m.forfeited)
	}
	return m
}

func (m *FarmingMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *FarmingMetrics) ObserveClaim(currency string, paid, forfeited *uint256.Int) {
	if m == nil {
		return
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "UNKNOWN"
	}
	if paid != nil && !paid.IsZero() {
		m.paid.WithLabelValues(currency).Add(paid.Float64())
	}
	if forfeited != nil && !forfeited.IsZero() {
		m.forfeited.WithLabelValues(currency).Add(forfeited.Float64())
	}
}

func (m *FarmingMetrics) ObserveDistributed(globalFarmID uint32, distributed *uint256.Int) {
	if m == nil || distributed == nil {
		return
	}
	m.distributed.WithLabelValues(strconv.FormatUint(uint64(globalFarmID), 10)).Set(distributed.Float64())
}
