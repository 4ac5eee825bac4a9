package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"farmchain/config"
	"farmchain/core/events"
	"farmchain/core/state"
	"farmchain/native/bank"
	nativecommon "farmchain/native/common"
	"farmchain/native/farming"
	"farmchain/observability"
	"farmchain/observability/metrics"
)

type scenario struct {
	Name          string            `yaml:"name"`
	ForfeitPolicy string            `yaml:"forfeitPolicy"`
	Valuation     map[string]string `yaml:"valuation"`
	Mint          []mintSpec        `yaml:"mint"`
	Steps         []scenarioStep    `yaml:"steps"`
}

type mintSpec struct {
	Account  string `yaml:"account"`
	Currency string `yaml:"currency"`
	Amount   string `yaml:"amount"`
}

type loyaltySpec struct {
	Initial  string `yaml:"initial"`
	Scale    uint64 `yaml:"scale"`
	FullRamp uint64 `yaml:"fullRamp"`
}

// scenarioStep is one engine call. Farms and deposits are referenced by the
// label of the step that created them. A step without a block keeps the
// current height.
type scenarioStep struct {
	Block       uint64       `yaml:"block"`
	Op          string       `yaml:"op"`
	Caller      string       `yaml:"caller"`
	Label       string       `yaml:"label"`
	GlobalFarm  string       `yaml:"globalFarm"`
	YieldFarm   string       `yaml:"yieldFarm"`
	Deposit     string       `yaml:"deposit"`
	Currency    string       `yaml:"currency"`
	Amount      string       `yaml:"amount"`
	Blocks      uint64       `yaml:"blocks"`
	MinDeposit  string       `yaml:"minDeposit"`
	Pool        string       `yaml:"pool"`
	Multiplier  string       `yaml:"multiplier"`
	Loyalty     *loyaltySpec `yaml:"loyalty"`
	NoLoyalty   bool         `yaml:"noLoyalty"`
	Force       bool         `yaml:"force"`
	Shares      string       `yaml:"shares"`
	ExpectError string       `yaml:"expectError"`
}

func parseScenario(raw []byte) (*scenario, error) {
	var sc scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}

type simulator struct {
	store    *state.FarmStore
	engine   *farming.Engine
	recorder *events.Recorder
	scenario *scenario
	out      io.Writer
	format   amountFormatter

	block    uint64
	globals  map[string]uint32
	yields   map[string]uint32
	deposits map[string]uint64
	names    map[[20]byte]string
}

// newSimulator builds a simulator whose engine follows the farming section of
// the operator config and reports to the process metrics.
func newSimulator(store *state.FarmStore, cfg config.Farming, sc *scenario, out io.Writer, format amountFormatter) (*simulator, error) {
	params, err := cfg.EngineParams()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sc.ForfeitPolicy) != "" {
		policy, err := farming.ParseForfeitPolicy(sc.ForfeitPolicy)
		if err != nil {
			return nil, err
		}
		params.ForfeitPolicy = policy
	}
	valuation := farming.NewStaticValuation(nil)
	for pool, factor := range sc.Valuation {
		value, err := farming.ParseFixed(factor)
		if err != nil {
			return nil, fmt.Errorf("valuation for %s: %w", pool, err)
		}
		valuation.SetFactor(pool, value)
	}

	sim := &simulator{
		store:    store,
		recorder: events.NewRecorder(nil),
		scenario: sc,
		out:      out,
		format:   format,
		globals:  make(map[string]uint32),
		yields:   make(map[string]uint32),
		deposits: make(map[string]uint64),
		names:    make(map[[20]byte]string),
	}
	sim.engine = farming.NewEngine(params)
	sim.engine.SetBackend(store)
	sim.engine.SetValuation(valuation)
	sim.engine.SetClock(farming.ClockFunc(func() uint64 { return sim.block }))
	sim.engine.SetEmitter(observability.NewCountingEmitter(sim.recorder))
	sim.engine.SetMetrics(metrics.Farming())
	if cfg.Paused {
		sim.engine.SetPauses(nativecommon.NewPauses(farming.ModuleName))
	}
	return sim, nil
}

func (s *simulator) run() error {
	if s.scenario.Name != "" {
		fmt.Fprintf(s.out, "scenario: %s\n", s.scenario.Name)
	}
	for _, m := range s.scenario.Mint {
		if err := s.mint(m); err != nil {
			return err
		}
	}
	for i, step := range s.scenario.Steps {
		if step.Block != 0 {
			if step.Block < s.block {
				return fmt.Errorf("step %d: block %d is before current block %d", i+1, step.Block, s.block)
			}
			s.block = step.Block
		}
		s.recorder.Reset()
		summary, err := s.apply(step)
		if err := s.checkOutcome(i+1, step, err); err != nil {
			return err
		}
		if err != nil {
			summary = "rejected: " + err.Error()
		}
		fmt.Fprintf(s.out, "[%d] %s by %s: %s\n", s.block, step.Op, step.Caller, summary)
		for _, evt := range s.recorder.Types() {
			fmt.Fprintf(s.out, "      event %s\n", evt)
		}
	}
	return s.summarize()
}

func (s *simulator) checkOutcome(index int, step scenarioStep, err error) error {
	want := strings.TrimSpace(step.ExpectError)
	switch {
	case want == "" && err != nil:
		return fmt.Errorf("step %d (%s): %w", index, step.Op, err)
	case want != "" && err == nil:
		return fmt.Errorf("step %d (%s): expected error containing %q", index, step.Op, want)
	case want != "" && !strings.Contains(err.Error(), want):
		return fmt.Errorf("step %d (%s): expected error containing %q, got %v", index, step.Op, want, err)
	}
	return nil
}

func (s *simulator) apply(step scenarioStep) (string, error) {
	caller := s.account(step.Caller)
	switch strings.ToLower(strings.TrimSpace(step.Op)) {
	case "mint":
		return "minted", s.mint(mintSpec{Account: step.Caller, Currency: step.Currency, Amount: step.Amount})
	case "create_global_farm":
		total, err := parseAmount(step.Amount)
		if err != nil {
			return "", err
		}
		minDeposit, err := parseAmount(step.MinDeposit)
		if err != nil {
			return "", err
		}
		curve, err := step.Loyalty.curve()
		if err != nil {
			return "", err
		}
		id, err := s.engine.CreateGlobalFarm(caller, farming.GlobalFarmParams{
			RewardCurrency: step.Currency,
			TotalRewards:   total,
			PlannedBlocks:  step.Blocks,
			MinDeposit:     minDeposit,
			Loyalty:        curve,
		})
		if err != nil {
			return "", err
		}
		if step.Label != "" {
			s.globals[step.Label] = id
		}
		return fmt.Sprintf("global farm %d", id), nil
	case "stop_global_farm":
		id, err := s.globalID(step.GlobalFarm)
		if err != nil {
			return "", err
		}
		return "stopped", s.engine.StopGlobalFarm(caller, id)
	case "terminate_global_farm":
		id, err := s.globalID(step.GlobalFarm)
		if err != nil {
			return "", err
		}
		return "terminated", s.engine.TerminateGlobalFarm(caller, id)
	case "sync":
		if step.YieldFarm != "" {
			id, err := s.yieldID(step.YieldFarm)
			if err != nil {
				return "", err
			}
			return "synced", s.engine.SyncYieldFarm(id)
		}
		id, err := s.globalID(step.GlobalFarm)
		if err != nil {
			return "", err
		}
		return "synced", s.engine.SyncGlobalFarm(id)
	case "create_yield_farm":
		globalID, err := s.globalID(step.GlobalFarm)
		if err != nil {
			return "", err
		}
		multiplier, err := parseMultiplier(step.Multiplier)
		if err != nil {
			return "", err
		}
		curve, err := step.Loyalty.curve()
		if err != nil {
			return "", err
		}
		id, err := s.engine.CreateYieldFarm(caller, globalID, farming.YieldFarmParams{
			PoolID:     step.Pool,
			Multiplier: multiplier,
			Loyalty:    curve,
			NoLoyalty:  step.NoLoyalty,
		})
		if err != nil {
			return "", err
		}
		if step.Label != "" {
			s.yields[step.Label] = id
		}
		return fmt.Sprintf("yield farm %d", id), nil
	case "update_multiplier":
		id, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		multiplier, err := parseMultiplier(step.Multiplier)
		if err != nil {
			return "", err
		}
		return "multiplier " + multiplier.String(), s.engine.UpdateYieldFarmMultiplier(caller, id, multiplier)
	case "stop_yield_farm":
		id, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		return "stopped", s.engine.StopYieldFarm(caller, id)
	case "resume_yield_farm":
		id, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		multiplier, err := parseMultiplier(step.Multiplier)
		if err != nil {
			return "", err
		}
		return "resumed", s.engine.ResumeYieldFarm(caller, id, multiplier)
	case "terminate_yield_farm":
		id, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		return "terminated", s.engine.TerminateYieldFarm(caller, id, step.Force)
	case "deposit":
		yieldID, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		shares, err := parseAmount(step.Shares)
		if err != nil {
			return "", err
		}
		id, err := s.engine.DepositShares(caller, yieldID, shares)
		if err != nil {
			return "", err
		}
		if step.Label != "" {
			s.deposits[step.Label] = id
		}
		return fmt.Sprintf("deposit %d", id), nil
	case "claim":
		id, err := s.depositID(step.Deposit)
		if err != nil {
			return "", err
		}
		claim, err := s.engine.ClaimRewards(caller, id)
		if err != nil {
			return "", err
		}
		return s.describeClaim(claim), nil
	case "redeposit":
		id, err := s.depositID(step.Deposit)
		if err != nil {
			return "", err
		}
		yieldID, err := s.yieldID(step.YieldFarm)
		if err != nil {
			return "", err
		}
		claim, err := s.engine.RedepositShares(caller, id, yieldID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("moved to yield farm %d, %s", yieldID, s.describeClaim(claim)), nil
	case "withdraw":
		id, err := s.depositID(step.Deposit)
		if err != nil {
			return "", err
		}
		result, err := s.engine.WithdrawShares(caller, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("returned %s %s, %s", s.format.amount(result.Shares), result.PoolID, s.describeClaim(result.Claim)), nil
	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

func (s *simulator) describeClaim(c *farming.ClaimResult) string {
	return fmt.Sprintf("paid %s %s, forfeited %s", s.format.amount(c.Paid), c.Currency, s.format.amount(c.Forfeited))
}

func (s *simulator) summarize() error {
	labels := make([]string, 0, len(s.globals))
	for label := range s.globals {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		farm, err := s.engine.GlobalFarm(s.globals[label])
		if err != nil {
			return err
		}
		view := s.format.globalFarm(farm)
		fmt.Fprintf(s.out, "global farm %s (%d) %s: paid %s, undistributed %s, recycled %s\n",
			label, view.ID, view.State, view.Paid, view.Undistributed, view.Recycled)
	}

	accounts := make([][20]byte, 0, len(s.names))
	for account := range s.names {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return s.names[accounts[i]] < s.names[accounts[j]] })
	currencies := s.currencies()
	return s.store.View(func(tx *state.FarmTx) error {
		for _, account := range accounts {
			for _, currency := range currencies {
				balance, err := tx.BalanceOf(currency, account)
				if err != nil {
					return err
				}
				if balance.IsZero() {
					continue
				}
				fmt.Fprintf(s.out, "balance %s %s: %s\n", s.names[account], currency, s.format.amount(balance))
			}
		}
		return nil
	})
}

func (s *simulator) currencies() []string {
	seen := make(map[string]struct{})
	add := func(c string) {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			seen[c] = struct{}{}
		}
	}
	for _, m := range s.scenario.Mint {
		add(m.Currency)
	}
	for _, step := range s.scenario.Steps {
		add(step.Currency)
		add(step.Pool)
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *simulator) mint(m mintSpec) error {
	amount, err := parseAmount(m.Amount)
	if err != nil {
		return fmt.Errorf("mint %s to %s: %w", m.Currency, m.Account, err)
	}
	account := s.account(m.Account)
	return s.store.Update(func(tx *state.FarmTx) error {
		return tx.Mint(m.Currency, account, amount)
	})
}

// account resolves a hex address or derives a stable address from a name.
func (s *simulator) account(ref string) [20]byte {
	ref = strings.TrimSpace(ref)
	account, err := bank.ParseAccount(ref)
	if err != nil {
		copy(account[:], ethcrypto.Keccak256([]byte("farmctl/account/" + ref))[12:])
	}
	if _, ok := s.names[account]; !ok {
		s.names[account] = ref
	}
	return account
}

func (s *simulator) globalID(label string) (uint32, error) {
	id, ok := s.globals[label]
	if !ok {
		return 0, fmt.Errorf("unknown global farm label %q", label)
	}
	return id, nil
}

func (s *simulator) yieldID(label string) (uint32, error) {
	id, ok := s.yields[label]
	if !ok {
		return 0, fmt.Errorf("unknown yield farm label %q", label)
	}
	return id, nil
}

func (s *simulator) depositID(label string) (uint64, error) {
	id, ok := s.deposits[label]
	if !ok {
		return 0, fmt.Errorf("unknown deposit label %q", label)
	}
	return id, nil
}

func (l *loyaltySpec) curve() (*farming.LoyaltyCurve, error) {
	if l == nil {
		return nil, nil
	}
	initial, err := farming.ParseFixed(l.Initial)
	if err != nil {
		return nil, err
	}
	return &farming.LoyaltyCurve{InitialRewardPercentage: initial, ScaleCoef: l.Scale, FullRampBlocks: l.FullRamp}, nil
}

func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	out, err := uint256.FromDecimal(strings.ReplaceAll(trimmed, "_", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return out, nil
}

func parseMultiplier(value string) (farming.Fixed, error) {
	if strings.TrimSpace(value) == "" {
		return farming.FixedOne(), nil
	}
	return farming.ParseFixed(value)
}
