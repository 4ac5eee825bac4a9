package farming

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// GlobalFarmState tracks the lifecycle of a global farm.
type GlobalFarmState uint8

const (
	GlobalFarmActive GlobalFarmState = iota
	GlobalFarmStopped
	GlobalFarmTerminated
)

func (s GlobalFarmState) Valid() bool {
	switch s {
	case GlobalFarmActive, GlobalFarmStopped, GlobalFarmTerminated:
		return true
	default:
		return false
	}
}

func (s GlobalFarmState) String() string {
	switch s {
	case GlobalFarmActive:
		return "active"
	case GlobalFarmStopped:
		return "stopped"
	case GlobalFarmTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Transition returns the target state when moving from s to next is legal.
func (s GlobalFarmState) Transition(next GlobalFarmState) (GlobalFarmState, error) {
	switch {
	case s == GlobalFarmActive && next == GlobalFarmStopped,
		s == GlobalFarmStopped && next == GlobalFarmTerminated:
		return next, nil
	default:
		return s, fmt.Errorf("%w: global farm %s -> %s", ErrIllegalStateTransition, s, next)
	}
}

// YieldFarmState tracks the lifecycle of a yield farm.
type YieldFarmState uint8

const (
	YieldFarmActive YieldFarmState = iota
	YieldFarmStopped
	YieldFarmDeleted
)

func (s YieldFarmState) Valid() bool {
	switch s {
	case YieldFarmActive, YieldFarmStopped, YieldFarmDeleted:
		return true
	default:
		return false
	}
}

func (s YieldFarmState) String() string {
	switch s {
	case YieldFarmActive:
		return "active"
	case YieldFarmStopped:
		return "stopped"
	case YieldFarmDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Transition returns the target state when moving from s to next is legal.
func (s YieldFarmState) Transition(next YieldFarmState) (YieldFarmState, error) {
	switch {
	case s == YieldFarmActive && next == YieldFarmStopped,
		s == YieldFarmStopped && next == YieldFarmActive,
		s == YieldFarmActive && next == YieldFarmDeleted,
		s == YieldFarmStopped && next == YieldFarmDeleted:
		return next, nil
	default:
		return s, fmt.Errorf("%w: yield farm %s -> %s", ErrIllegalStateTransition, s, next)
	}
}

// GlobalFarm owns a reward budget and distributes it over time to the yield
// farms attached to it in proportion to their multipliers.
type GlobalFarm struct {
	ID             uint32
	Owner          [20]byte
	RewardCurrency string
	TotalRewards   *uint256.Int
	PlannedBlocks  uint64
	RewardPerBlock *uint256.Int
	MinDeposit     *uint256.Int
	Loyalty        *LoyaltyCurve

	CreatedAt uint64
	UpdatedAt uint64

	// AccRewardPerWeight is the reward accrued per unit of yield farm weight.
	AccRewardPerWeight Fixed
	// DistributedRewards is the part of TotalRewards moved into the
	// accumulator, net of amounts recycled back into the budget.
	DistributedRewards *uint256.Int
	PaidRewards        *uint256.Int
	RecycledRewards    *uint256.Int

	// TotalWeight is the sum of the multipliers of active yield farms.
	TotalWeight    Fixed
	// LiveYieldFarms counts yield farms that are neither deleted nor marked
	// for deletion.
	LiveYieldFarms uint32
	State          GlobalFarmState
}

// Clone returns a deep copy of the farm.
func (g *GlobalFarm) Clone() *GlobalFarm {
	if g == nil {
		return nil
	}
	clone := *g
	clone.TotalRewards = cloneAmount(g.TotalRewards)
	clone.RewardPerBlock = cloneAmount(g.RewardPerBlock)
	clone.MinDeposit = cloneAmount(g.MinDeposit)
	clone.Loyalty = g.Loyalty.Clone()
	clone.DistributedRewards = cloneAmount(g.DistributedRewards)
	clone.PaidRewards = cloneAmount(g.PaidRewards)
	clone.RecycledRewards = cloneAmount(g.RecycledRewards)
	return &clone
}

// YieldFarm incentivises a single liquidity pool with a weighted share of its
// parent global farm's accrual.
type YieldFarm struct {
	ID           uint32
	GlobalFarmID uint32
	PoolID       string
	Multiplier   Fixed
	Loyalty      *LoyaltyCurve

	TotalShares       *uint256.Int
	TotalValuedShares *uint256.Int
	// AccRewardPerShare only ever increases.
	AccRewardPerShare Fixed
	// GlobalAccSnapshot is the parent's AccRewardPerWeight at the last sync.
	GlobalAccSnapshot Fixed
	// LeftToDistribute holds rewards pulled from the parent that deposits
	// have not claimed yet.
	LeftToDistribute *uint256.Int
	DepositCount     uint64

	CreatedAt         uint64
	UpdatedAt         uint64
	MarkedForDeletion bool
	State             YieldFarmState
}

// Clone returns a deep copy of the farm.
func (y *YieldFarm) Clone() *YieldFarm {
	if y == nil {
		return nil
	}
	clone := *y
	clone.Loyalty = y.Loyalty.Clone()
	clone.TotalShares = cloneAmount(y.TotalShares)
	clone.TotalValuedShares = cloneAmount(y.TotalValuedShares)
	clone.LeftToDistribute = cloneAmount(y.LeftToDistribute)
	return &clone
}

// Deposit is a single stake of pool shares in one yield farm.
type Deposit struct {
	ID           uint64
	Owner        [20]byte
	GlobalFarmID uint32
	YieldFarmID  uint32
	PoolID       string
	Shares       *uint256.Int
	ValuedShares *uint256.Int
	// AccRewardPerShareEntry is the yield farm accumulator at the last
	// claim; it never exceeds the farm's current accumulator.
	AccRewardPerShareEntry Fixed
	// EnteredAt drives the loyalty curve. Claims and redeposits keep it.
	EnteredAt        uint64
	UpdatedAt        uint64
	ClaimedRewards   *uint256.Int
	ForfeitedRewards *uint256.Int
}

// Clone returns a deep copy of the deposit.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Shares = cloneAmount(d.Shares)
	clone.ValuedShares = cloneAmount(d.ValuedShares)
	clone.ClaimedRewards = cloneAmount(d.ClaimedRewards)
	clone.ForfeitedRewards = cloneAmount(d.ForfeitedRewards)
	return &clone
}

// GlobalFarmParams are the owner supplied inputs for a new global farm.
type GlobalFarmParams struct {
	RewardCurrency string
	TotalRewards   *uint256.Int
	PlannedBlocks  uint64
	MinDeposit     *uint256.Int
	// Loyalty is the default curve for yield farms that do not bring one.
	Loyalty *LoyaltyCurve
}

// YieldFarmParams are the owner supplied inputs for a new yield farm.
type YieldFarmParams struct {
	PoolID     string
	Multiplier Fixed
	// Loyalty overrides the global farm default when set.
	Loyalty *LoyaltyCurve
	// NoLoyalty disables the loyalty penalty even if the global farm has a
	// default curve.
	NoLoyalty bool
}

// ClaimResult reports the outcome of a reward claim.
type ClaimResult struct {
	Currency  string
	Paid      *uint256.Int
	Forfeited *uint256.Int
}

func zeroClaim(currency string) *ClaimResult {
	return &ClaimResult{Currency: currency, Paid: new(uint256.Int), Forfeited: new(uint256.Int)}
}

// WithdrawResult reports the outcome of a withdrawal.
type WithdrawResult struct {
	Claim  *ClaimResult
	PoolID string
	Shares *uint256.Int
}

// ForfeitPolicy selects where the loyalty penalty of a claim goes.
type ForfeitPolicy uint8

const (
	// ForfeitToGlobalFarm returns penalties to the global farm's
	// undistributed budget.
	ForfeitToGlobalFarm ForfeitPolicy = iota
	// ForfeitToYieldFarm redistributes penalties to the remaining stakers of
	// the same yield farm.
	ForfeitToYieldFarm
)

func (p ForfeitPolicy) String() string {
	switch p {
	case ForfeitToGlobalFarm:
		return "global"
	case ForfeitToYieldFarm:
		return "yield"
	default:
		return "unknown"
	}
}

// ParseForfeitPolicy maps a configuration string onto a policy.
func ParseForfeitPolicy(value string) (ForfeitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "global":
		return ForfeitToGlobalFarm, nil
	case "yield":
		return ForfeitToYieldFarm, nil
	default:
		return ForfeitToGlobalFarm, fmt.Errorf("%w: unknown forfeit policy %q", ErrInvalidParameters, value)
	}
}

func normalizeSymbol(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
