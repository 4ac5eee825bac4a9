package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"farmchain/config"
	"farmchain/core/state"
	"farmchain/native/farming"
	"farmchain/storage"
)

const loyaltyScenario = `
name: loyalty ramp
mint:
  - {account: owner, currency: HDX, amount: "1_000_000"}
  - {account: alice, currency: HDX-DOT, amount: "100"}
steps:
  - op: create_global_farm
    caller: owner
    label: gf
    currency: HDX
    amount: "1000000"
    blocks: 100
    minDeposit: "10"
    loyalty: {initial: "0.5", scale: 100, fullRamp: 50}
  - op: create_yield_farm
    caller: owner
    globalFarm: gf
    pool: HDX-DOT
    label: yf
  - op: deposit
    caller: alice
    yieldFarm: yf
    shares: "100"
    label: d1
  - block: 50
    op: claim
    caller: alice
    deposit: d1
  - op: claim
    caller: alice
    deposit: d1
    expectError: nothing to claim
`

func newTestSimulator(t *testing.T, raw string) (*simulator, *bytes.Buffer) {
	t.Helper()
	return newConfiguredSimulator(t, raw, config.Default().Farming)
}

func newConfiguredSimulator(t *testing.T, raw string, cfg config.Farming) (*simulator, *bytes.Buffer) {
	t.Helper()
	sc, err := parseScenario([]byte(raw))
	require.NoError(t, err)
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	var out bytes.Buffer
	sim, err := newSimulator(state.NewFarmStore(db), cfg, sc, &out, newAmountFormatter(0))
	require.NoError(t, err)
	return sim, &out
}

// gathered returns the value of the default-registry series with the given
// name whose labels include every name/value pair in labels.
func gathered(t *testing.T, name string, labels ...string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			have := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				have[pair.GetName()] = pair.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if have[labels[i]] != labels[i+1] {
					continue series
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func TestSimulatorReplaysScenario(t *testing.T) {
	sim, out := newTestSimulator(t, loyaltyScenario)
	require.NoError(t, sim.run())

	text := out.String()
	require.Contains(t, text, "scenario: loyalty ramp")
	require.Contains(t, text, "[50] claim by alice: paid 500000 HDX, forfeited 0")
	require.Contains(t, text, "event farming.deposit.claimed")
	require.Contains(t, text, "[50] claim by alice: rejected: farming: nothing to claim")
	require.Contains(t, text, "global farm gf (1) active: paid 500000, undistributed 500000, recycled 0")
	require.Contains(t, text, "balance alice HDX: 500000")
}

func TestSimulatorStopsOnUnexpectedError(t *testing.T) {
	sim, _ := newTestSimulator(t, `
steps:
  - op: create_global_farm
    caller: owner
    currency: HDX
    amount: "1000000"
    blocks: 100
    minDeposit: "10"
`)
	err := sim.run()
	require.ErrorIs(t, err, farming.ErrInsufficientBalance)
}

func TestSimulatorRejectsMissingExpectedError(t *testing.T) {
	sim, _ := newTestSimulator(t, `
mint:
  - {account: owner, currency: HDX, amount: "5000"}
steps:
  - op: create_global_farm
    caller: owner
    currency: HDX
    amount: "5000"
    blocks: 10
    minDeposit: "1"
    expectError: insufficient
`)
	require.ErrorContains(t, sim.run(), "expected error containing")
}

func TestSimulatorRejectsTimeTravel(t *testing.T) {
	sim, _ := newTestSimulator(t, `
steps:
  - {block: 10, op: mint, caller: owner, currency: HDX, amount: "1"}
  - {block: 5, op: mint, caller: owner, currency: HDX, amount: "1"}
`)
	require.ErrorContains(t, sim.run(), "before current block")
}

func TestSimulatorAppliesValuationAndPolicy(t *testing.T) {
	sim, out := newTestSimulator(t, `
forfeitPolicy: yield
valuation: {HDX-DOT: "2"}
mint:
  - {account: owner, currency: HDX, amount: "1000000"}
  - {account: alice, currency: HDX-DOT, amount: "100"}
steps:
  - {op: create_global_farm, caller: owner, label: gf, currency: HDX, amount: "1000000", blocks: 100, minDeposit: "150"}
  - {op: create_yield_farm, caller: owner, globalFarm: gf, pool: HDX-DOT, label: yf}
  - {op: deposit, caller: alice, yieldFarm: yf, shares: "100", label: d1}
  - {block: 10, op: withdraw, caller: alice, deposit: d1}
`)
	require.NoError(t, sim.run())
	require.Equal(t, farming.ForfeitToYieldFarm, sim.engine.Params().ForfeitPolicy)
	require.Contains(t, out.String(), "returned 100 HDX-DOT, paid 100000 HDX, forfeited 0")
}

func TestParseScenarioRequiresSteps(t *testing.T) {
	_, err := parseScenario([]byte("name: empty\n"))
	require.Error(t, err)
	_, err = parseScenario([]byte("steps: [oops"))
	require.Error(t, err)
}

func TestAmountFormatter(t *testing.T) {
	amount, err := parseAmount("1_500_000")
	require.NoError(t, err)
	require.Equal(t, "1.5", newAmountFormatter(6).amount(amount))
	require.Equal(t, "1500000", newAmountFormatter(-1).amount(amount))
	require.Equal(t, "0", newAmountFormatter(6).amount(nil))
}

func TestSimulatorTwoPoolScenarioFile(t *testing.T) {
	raw, err := os.ReadFile("testdata/two_pools.yaml")
	require.NoError(t, err)
	sim, out := newTestSimulator(t, string(raw))
	require.NoError(t, sim.run())

	text := out.String()
	require.Contains(t, text, "[20] claim by alice: paid 50000 HDX, forfeited 0")
	require.Contains(t, text, "[20] claim by bob: paid 150000 HDX, forfeited 0")
	require.Contains(t, text, "[40] claim by alice: paid 200000 HDX, forfeited 0")
	require.Contains(t, text, "global farm gf (1) active: paid 400000, undistributed 600000, recycled 0")
	require.Contains(t, text, "balance alice HDX: 250000")
	require.Contains(t, text, "balance bob HDX: 150000")
	require.Contains(t, text, "balance bob HDX-USDT: 100")
}

func TestSimulatorPausedConfigRejectsMutations(t *testing.T) {
	cfg := config.Default().Farming
	cfg.Paused = true
	sim, out := newConfiguredSimulator(t, `
mint:
  - {account: owner, currency: HDX, amount: "1000000"}
steps:
  - {op: create_global_farm, caller: owner, currency: HDX, amount: "1000000", blocks: 100, expectError: module paused}
`, cfg)
	require.NoError(t, sim.run())
	require.Contains(t, out.String(), "[0] create_global_farm by owner: rejected: module paused")
	require.NotContains(t, out.String(), "global farm")

	sim, _ = newConfiguredSimulator(t, `
mint:
  - {account: owner, currency: HDX, amount: "1000000"}
steps:
  - {op: create_global_farm, caller: owner, currency: HDX, amount: "1000000", blocks: 100}
`, cfg)
	require.ErrorIs(t, sim.run(), farming.ErrModulePaused)
}

func TestSimulatorReportsClaimMetrics(t *testing.T) {
	const currency = "METRICS"
	paidBefore := gathered(t, "farming_rewards_paid_total", "currency", currency)
	forfeitedBefore := gathered(t, "farming_rewards_forfeited_total", "currency", currency)
	claimsBefore := gathered(t, "farming_operations_total", "op", "claim_rewards", "result", "ok")

	sim, _ := newTestSimulator(t, `
mint:
  - {account: owner, currency: METRICS, amount: "1000000"}
  - {account: alice, currency: METRICS-DOT, amount: "100"}
steps:
  - {op: create_global_farm, caller: owner, label: gf, currency: METRICS, amount: "1000000", blocks: 100, minDeposit: "10", loyalty: {initial: "0.5", scale: 10}}
  - {op: create_yield_farm, caller: owner, globalFarm: gf, pool: METRICS-DOT, label: yf}
  - {op: deposit, caller: alice, yieldFarm: yf, shares: "100", label: d1}
  - {block: 10, op: claim, caller: alice, deposit: d1}
`)
	require.NoError(t, sim.run())

	require.Equal(t, float64(75_000), gathered(t, "farming_rewards_paid_total", "currency", currency)-paidBefore)
	require.Equal(t, float64(25_000), gathered(t, "farming_rewards_forfeited_total", "currency", currency)-forfeitedBefore)
	require.Equal(t, float64(1), gathered(t, "farming_operations_total", "op", "claim_rewards", "result", "ok")-claimsBefore)
	require.Equal(t, float64(75_000), gathered(t, "farming_global_farm_distributed", "farm", "1"))
}
