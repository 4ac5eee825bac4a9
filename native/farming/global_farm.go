package farming

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

func newGlobalFarm(id uint32, owner [20]byte, p GlobalFarmParams, params Params, now uint64) (*GlobalFarm, error) {
	currency := normalizeSymbol(p.RewardCurrency)
	if currency == "" {
		return nil, fmt.Errorf("%w: reward currency required", ErrInvalidParameters)
	}
	if p.PlannedBlocks == 0 || p.PlannedBlocks < params.MinPlannedBlocks {
		return nil, fmt.Errorf("%w: planned duration %d blocks too short", ErrInvalidParameters, p.PlannedBlocks)
	}
	total := amountOrZero(p.TotalRewards)
	if total.IsZero() || total.Lt(amountOrZero(params.MinTotalRewards)) {
		return nil, fmt.Errorf("%w: total rewards %s below minimum %s", ErrInvalidParameters, total.Dec(), amountOrZero(params.MinTotalRewards).Dec())
	}
	perBlock := new(uint256.Int).Div(total, uint256.NewInt(p.PlannedBlocks))
	if perBlock.IsZero() {
		return nil, fmt.Errorf("%w: reward per block rounds to zero", ErrInvalidParameters)
	}
	if p.MinDeposit == nil || p.MinDeposit.IsZero() {
		return nil, fmt.Errorf("%w: minimum deposit must be positive", ErrInvalidParameters)
	}
	if err := p.Loyalty.Validate(); err != nil {
		return nil, err
	}
	return &GlobalFarm{
		ID:                 id,
		Owner:              owner,
		RewardCurrency:     currency,
		TotalRewards:       total.Clone(),
		PlannedBlocks:      p.PlannedBlocks,
		RewardPerBlock:     perBlock,
		MinDeposit:         p.MinDeposit.Clone(),
		Loyalty:            p.Loyalty.Clone(),
		CreatedAt:          now,
		UpdatedAt:          now,
		DistributedRewards: new(uint256.Int),
		PaidRewards:        new(uint256.Int),
		RecycledRewards:    new(uint256.Int),
		State:              GlobalFarmActive,
	}, nil
}

// Undistributed returns the part of the budget not yet moved into the
// accumulator.
func (g *GlobalFarm) Undistributed() *uint256.Int {
	return saturatingSub(g.TotalRewards, g.DistributedRewards)
}

// sync advances the accumulator to now. Calling it again in the same block is
// a no-op and a terminated farm never changes. A stopped farm, or one without
// attached weight, only moves its clock forward so the budget for that
// interval stays undistributed.
func (g *GlobalFarm) sync(now uint64) error {
	if g.State == GlobalFarmTerminated || now <= g.UpdatedAt {
		return nil
	}
	elapsed := now - g.UpdatedAt
	if g.State != GlobalFarmActive || g.TotalWeight.IsZero() {
		g.UpdatedAt = now
		return nil
	}

	remaining := g.Undistributed()
	reward, err := checkedMulUint64(g.RewardPerBlock, elapsed)
	if err != nil {
		// Budget cap: anything that overflows is certainly above what is left.
		reward = remaining
	}
	reward = minAmount(reward, remaining)
	if reward.IsZero() {
		g.UpdatedAt = now
		return nil
	}

	inc, err := perWeight(reward, g.TotalWeight)
	if err != nil {
		return err
	}
	acc, err := g.AccRewardPerWeight.Add(inc)
	if err != nil {
		return err
	}
	distributed, err := checkedAdd(g.DistributedRewards, reward)
	if err != nil {
		return err
	}
	if distributed.Gt(g.TotalRewards) {
		return fmt.Errorf("%w: distributed rewards exceed budget", ErrArithmetic)
	}

	g.AccRewardPerWeight = acc
	g.DistributedRewards = distributed
	g.UpdatedAt = now
	return nil
}

func (g *GlobalFarm) attachWeight(weight Fixed) error {
	total, err := g.TotalWeight.Add(weight)
	if err != nil {
		return err
	}
	g.TotalWeight = total
	return nil
}

func (g *GlobalFarm) detachWeight(weight Fixed) error {
	total, err := g.TotalWeight.Sub(weight)
	if err != nil {
		return err
	}
	g.TotalWeight = total
	return nil
}

// recycle returns an amount previously moved into the accumulator back to
// the undistributed budget.
func (g *GlobalFarm) recycle(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	distributed, err := checkedSub(g.DistributedRewards, amount)
	if err != nil {
		return err
	}
	recycled, err := checkedAdd(g.RecycledRewards, amount)
	if err != nil {
		return err
	}
	g.DistributedRewards = distributed
	g.RecycledRewards = recycled
	return nil
}

func (g *GlobalFarm) recordPayout(amount *uint256.Int) error {
	paid, err := checkedAdd(g.PaidRewards, amount)
	if err != nil {
		return err
	}
	g.PaidRewards = paid
	return nil
}

func (g *GlobalFarm) ensureOwner(who [20]byte) error {
	if g.Owner != who {
		return fmt.Errorf("%w: caller is not the owner of global farm %d", ErrUnauthorized, g.ID)
	}
	return nil
}

func (g *GlobalFarm) ensureActive() error {
	if g.State != GlobalFarmActive {
		return fmt.Errorf("%w: global farm %d is %s", ErrIllegalStateTransition, g.ID, g.State)
	}
	return nil
}

func (g *GlobalFarm) stop() error {
	next, err := g.State.Transition(GlobalFarmStopped)
	if err != nil {
		return err
	}
	g.State = next
	return nil
}

func (g *GlobalFarm) terminate() error {
	if g.LiveYieldFarms > 0 {
		return fmt.Errorf("%w: global farm %d still has %d yield farms", ErrIllegalStateTransition, g.ID, g.LiveYieldFarms)
	}
	next, err := g.State.Transition(GlobalFarmTerminated)
	if err != nil {
		return err
	}
	g.State = next
	return nil
}

func normalizePoolID(poolID string) string {
	return strings.ToUpper(strings.TrimSpace(poolID))
}
