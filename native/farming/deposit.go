package farming

import (
	"fmt"

	"github.com/holiman/uint256"
)

func newDeposit(id uint64, owner [20]byte, farm *YieldFarm, shares, valued *uint256.Int, now uint64) *Deposit {
	return &Deposit{
		ID:                     id,
		Owner:                  owner,
		GlobalFarmID:           farm.GlobalFarmID,
		YieldFarmID:            farm.ID,
		PoolID:                 farm.PoolID,
		Shares:                 shares.Clone(),
		ValuedShares:           valued.Clone(),
		AccRewardPerShareEntry: farm.AccRewardPerShare,
		EnteredAt:              now,
		UpdatedAt:              now,
		ClaimedRewards:         new(uint256.Int),
		ForfeitedRewards:       new(uint256.Int),
	}
}

// pendingClaim is the pure reward computation for d against a synced farm.
// raw is what the deposit earned since its entry snapshot, capped by what the
// farm still holds; pay is raw scaled by the loyalty multiplier and forfeit is
// the remainder.
type pendingClaim struct {
	raw     *uint256.Int
	pay     *uint256.Int
	forfeit *uint256.Int
}

func computeClaim(d *Deposit, farm *YieldFarm, now uint64) (*pendingClaim, error) {
	if farm.AccRewardPerShare.Cmp(d.AccRewardPerShareEntry) < 0 {
		return nil, fmt.Errorf("%w: deposit %d entry snapshot ahead of farm accumulator", ErrArithmetic, d.ID)
	}
	delta, err := farm.AccRewardPerShare.Sub(d.AccRewardPerShareEntry)
	if err != nil {
		return nil, err
	}
	raw, err := delta.MulInt(d.ValuedShares)
	if err != nil {
		return nil, err
	}
	raw = minAmount(raw, farm.LeftToDistribute)

	var elapsed uint64
	if now > d.EnteredAt {
		elapsed = now - d.EnteredAt
	}
	pay, err := LoyaltyMultiplier(elapsed, farm.Loyalty).MulInt(raw)
	if err != nil {
		return nil, err
	}
	forfeit, err := checkedSub(raw, pay)
	if err != nil {
		return nil, err
	}
	return &pendingClaim{raw: raw, pay: pay, forfeit: forfeit}, nil
}

func (d *Deposit) ensureOwner(who [20]byte) error {
	if d.Owner != who {
		return fmt.Errorf("%w: caller does not own deposit %d", ErrUnauthorized, d.ID)
	}
	return nil
}

func (d *Deposit) recordClaim(pay, forfeit *uint256.Int, now uint64) error {
	claimed, err := checkedAdd(d.ClaimedRewards, pay)
	if err != nil {
		return err
	}
	forfeited, err := checkedAdd(d.ForfeitedRewards, forfeit)
	if err != nil {
		return err
	}
	d.ClaimedRewards = claimed
	d.ForfeitedRewards = forfeited
	d.UpdatedAt = now
	return nil
}

// moveTo re-homes the deposit into another yield farm with a fresh entry
// snapshot. EnteredAt is kept.
func (d *Deposit) moveTo(farm *YieldFarm, valued *uint256.Int, now uint64) {
	d.YieldFarmID = farm.ID
	d.GlobalFarmID = farm.GlobalFarmID
	d.ValuedShares = valued.Clone()
	d.AccRewardPerShareEntry = farm.AccRewardPerShare
	d.UpdatedAt = now
}
