package farming

import (
	"fmt"

	"github.com/holiman/uint256"
)

func newYieldFarm(id uint32, parent *GlobalFarm, p YieldFarmParams, now uint64) (*YieldFarm, error) {
	poolID := normalizePoolID(p.PoolID)
	if poolID == "" {
		return nil, fmt.Errorf("%w: pool id required", ErrInvalidParameters)
	}
	if p.Multiplier.IsZero() {
		return nil, fmt.Errorf("%w: multiplier must be positive", ErrInvalidParameters)
	}
	var curve *LoyaltyCurve
	switch {
	case p.NoLoyalty:
	case p.Loyalty != nil:
		if err := p.Loyalty.Validate(); err != nil {
			return nil, err
		}
		curve = p.Loyalty.Clone()
	default:
		curve = parent.Loyalty.Clone()
	}
	return &YieldFarm{
		ID:                id,
		GlobalFarmID:      parent.ID,
		PoolID:            poolID,
		Multiplier:        p.Multiplier,
		Loyalty:           curve,
		TotalShares:       new(uint256.Int),
		TotalValuedShares: new(uint256.Int),
		GlobalAccSnapshot: parent.AccRewardPerWeight,
		LeftToDistribute:  new(uint256.Int),
		CreatedAt:         now,
		UpdatedAt:         now,
		State:             YieldFarmActive,
	}, nil
}

// sync pulls this farm's weighted share of everything the parent accrued
// since the last sync. With no valued shares staked the increment goes back to
// the parent budget instead of being stranded. Farms that are not active keep
// their accumulator frozen.
func (y *YieldFarm) sync(parent *GlobalFarm, now uint64) error {
	if y.State != YieldFarmActive {
		return nil
	}
	if now > y.UpdatedAt {
		y.UpdatedAt = now
	}
	if parent.AccRewardPerWeight.Cmp(y.GlobalAccSnapshot) <= 0 {
		return nil
	}
	delta, err := parent.AccRewardPerWeight.Sub(y.GlobalAccSnapshot)
	if err != nil {
		return err
	}
	increment, err := delta.MulFixedInt(y.Multiplier)
	if err != nil {
		return err
	}
	y.GlobalAccSnapshot = parent.AccRewardPerWeight
	if increment.IsZero() {
		return nil
	}
	if y.TotalValuedShares.IsZero() {
		return parent.recycle(increment)
	}

	perShare, err := perUnit(increment, y.TotalValuedShares)
	if err != nil {
		return err
	}
	acc, err := y.AccRewardPerShare.Add(perShare)
	if err != nil {
		return err
	}
	left, err := checkedAdd(y.LeftToDistribute, increment)
	if err != nil {
		return err
	}
	y.AccRewardPerShare = acc
	y.LeftToDistribute = left
	return nil
}

func (y *YieldFarm) stake(shares, valued *uint256.Int) error {
	if y.State != YieldFarmActive {
		return fmt.Errorf("%w: yield farm %d is %s", ErrIllegalStateTransition, y.ID, y.State)
	}
	total, err := checkedAdd(y.TotalShares, shares)
	if err != nil {
		return err
	}
	totalValued, err := checkedAdd(y.TotalValuedShares, valued)
	if err != nil {
		return err
	}
	y.TotalShares = total
	y.TotalValuedShares = totalValued
	y.DepositCount++
	return nil
}

// unstake removes a deposit's shares. It reports true when the farm was
// waiting for its last deposit to leave and is now deleted.
func (y *YieldFarm) unstake(shares, valued *uint256.Int) (bool, error) {
	if y.State == YieldFarmDeleted {
		return false, fmt.Errorf("%w: yield farm %d is deleted", ErrIllegalStateTransition, y.ID)
	}
	total, err := checkedSub(y.TotalShares, shares)
	if err != nil {
		return false, err
	}
	totalValued, err := checkedSub(y.TotalValuedShares, valued)
	if err != nil {
		return false, err
	}
	if y.DepositCount == 0 {
		return false, fmt.Errorf("%w: yield farm %d deposit count underflow", ErrArithmetic, y.ID)
	}
	y.TotalShares = total
	y.TotalValuedShares = totalValued
	y.DepositCount--
	if y.DepositCount == 0 && y.MarkedForDeletion {
		next, err := y.State.Transition(YieldFarmDeleted)
		if err != nil {
			return false, err
		}
		y.State = next
		return true, nil
	}
	return false, nil
}

func (y *YieldFarm) stop() error {
	next, err := y.State.Transition(YieldFarmStopped)
	if err != nil {
		return err
	}
	y.State = next
	return nil
}

func (y *YieldFarm) resume(parent *GlobalFarm, multiplier Fixed) error {
	if y.MarkedForDeletion {
		return fmt.Errorf("%w: yield farm %d is marked for deletion", ErrIllegalStateTransition, y.ID)
	}
	if multiplier.IsZero() {
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidParameters)
	}
	next, err := y.State.Transition(YieldFarmActive)
	if err != nil {
		return err
	}
	y.State = next
	y.Multiplier = multiplier
	y.GlobalAccSnapshot = parent.AccRewardPerWeight
	return nil
}

func (y *YieldFarm) delete() error {
	next, err := y.State.Transition(YieldFarmDeleted)
	if err != nil {
		return err
	}
	y.State = next
	return nil
}

// drainUndistributed empties LeftToDistribute and returns what it held.
func (y *YieldFarm) drainUndistributed() *uint256.Int {
	left := cloneAmount(y.LeftToDistribute)
	y.LeftToDistribute = new(uint256.Int)
	return left
}
