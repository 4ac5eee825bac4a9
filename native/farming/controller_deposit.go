package farming

import (
	"fmt"

	"github.com/holiman/uint256"
)

// DepositShares stakes pool shares into an active yield farm and returns the
// new deposit id. The shares move from the owner into the yield farm pot.
func (e *Engine) DepositShares(owner [20]byte, yieldFarmID uint32, shares *uint256.Int) (uint64, error) {
	var id uint64
	err := e.execute("deposit_shares", func(c *opContext) error {
		if shares == nil || shares.IsZero() {
			return fmt.Errorf("%w: shares must be positive", ErrInvalidParameters)
		}
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureActive(); err != nil {
			return err
		}
		valued, err := c.valueShares(global, yield, shares)
		if err != nil {
			return err
		}
		if err := yield.stake(shares, valued); err != nil {
			return err
		}
		if err := c.transfer(yield.PoolID, owner, YieldFarmPot(global.ID, yield.ID), shares); err != nil {
			return fmt.Errorf("stake into yield farm %d: %w", yield.ID, err)
		}
		next, err := c.tx.NextDepositID()
		if err != nil {
			return err
		}
		deposit := newDeposit(next, owner, yield, shares, valued, c.now)
		if err := c.tx.DepositPut(deposit); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(depositOpenedEvent(deposit))
		id = deposit.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ClaimRewards pays out what a deposit earned since its last claim, scaled by
// the loyalty multiplier. It fails with ErrNothingToClaim when nothing
// accrued.
func (e *Engine) ClaimRewards(owner [20]byte, depositID uint64) (*ClaimResult, error) {
	var result *ClaimResult
	err := e.execute("claim_rewards", func(c *opContext) error {
		deposit, err := c.deposit(depositID)
		if err != nil {
			return err
		}
		if err := deposit.ensureOwner(owner); err != nil {
			return err
		}
		global, yield, err := c.farms(deposit.YieldFarmID)
		if err != nil {
			return err
		}
		claim, err := c.settle(global, yield, deposit, true)
		if err != nil {
			return err
		}
		if err := c.tx.DepositPut(deposit); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(depositClaimedEvent(deposit, claim))
		result = claim
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ObserveClaim(result.Currency, result.Paid, result.Forfeited)
	}
	return result, nil
}

// RedepositShares moves a deposit into another active yield farm of the same
// global farm and pool. Pending rewards are settled under the old farm first
// and the loyalty clock keeps running from the original entry block.
//
// A pool has at most one active yield farm per global farm, so the only valid
// target is the farm that replaced a stopped one.
func (e *Engine) RedepositShares(owner [20]byte, depositID uint64, yieldFarmID uint32) (*ClaimResult, error) {
	var result *ClaimResult
	err := e.execute("redeposit_shares", func(c *opContext) error {
		deposit, err := c.deposit(depositID)
		if err != nil {
			return err
		}
		if err := deposit.ensureOwner(owner); err != nil {
			return err
		}
		if deposit.YieldFarmID == yieldFarmID {
			return fmt.Errorf("%w: deposit %d already in yield farm %d", ErrInvalidParameters, deposit.ID, yieldFarmID)
		}
		target, err := c.yieldFarm(yieldFarmID)
		if err != nil {
			return err
		}
		if target.GlobalFarmID != deposit.GlobalFarmID || target.PoolID != deposit.PoolID {
			return fmt.Errorf("%w: yield farm %d does not share global farm and pool with deposit %d", ErrInvalidParameters, target.ID, deposit.ID)
		}
		if target.State != YieldFarmActive {
			return fmt.Errorf("%w: yield farm %d is %s", ErrIllegalStateTransition, target.ID, target.State)
		}
		global, current, err := c.farms(deposit.YieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureActive(); err != nil {
			return err
		}
		if err := c.sync(global, target); err != nil {
			return err
		}

		claim, err := c.settle(global, current, deposit, false)
		if err != nil {
			return err
		}
		if !claim.Paid.IsZero() || !claim.Forfeited.IsZero() {
			c.emit(depositClaimedEvent(deposit, claim))
		}
		deleted, err := current.unstake(deposit.Shares, deposit.ValuedShares)
		if err != nil {
			return err
		}
		valued, err := c.valueShares(global, target, deposit.Shares)
		if err != nil {
			return err
		}
		if err := target.stake(deposit.Shares, valued); err != nil {
			return err
		}
		from := YieldFarmPot(global.ID, current.ID)
		to := YieldFarmPot(global.ID, target.ID)
		if err := c.transfer(deposit.PoolID, from, to, deposit.Shares); err != nil {
			return fmt.Errorf("move deposit %d shares: %w", deposit.ID, err)
		}
		deposit.moveTo(target, valued, c.now)

		if err := c.tx.DepositPut(deposit); err != nil {
			return err
		}
		if err := c.putFarms(global, current); err != nil {
			return err
		}
		if err := c.tx.YieldFarmPut(target); err != nil {
			return err
		}
		if deleted {
			c.emit(yieldFarmEvent(EventTypeYieldFarmDeleted, current))
		}
		c.emit(depositRedepositedEvent(deposit, current.ID))
		result = claim
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ObserveClaim(result.Currency, result.Paid, result.Forfeited)
	}
	return result, nil
}

// WithdrawShares settles a deposit, returns its shares to the owner and
// removes the record.
func (e *Engine) WithdrawShares(owner [20]byte, depositID uint64) (*WithdrawResult, error) {
	var result *WithdrawResult
	err := e.execute("withdraw_shares", func(c *opContext) error {
		deposit, err := c.deposit(depositID)
		if err != nil {
			return err
		}
		if err := deposit.ensureOwner(owner); err != nil {
			return err
		}
		global, yield, err := c.farms(deposit.YieldFarmID)
		if err != nil {
			return err
		}
		claim, err := c.settle(global, yield, deposit, false)
		if err != nil {
			return err
		}
		deleted, err := yield.unstake(deposit.Shares, deposit.ValuedShares)
		if err != nil {
			return err
		}
		if err := c.transfer(deposit.PoolID, YieldFarmPot(global.ID, yield.ID), deposit.Owner, deposit.Shares); err != nil {
			return fmt.Errorf("return deposit %d shares: %w", deposit.ID, err)
		}
		if err := c.tx.DepositDelete(deposit); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		if !claim.Paid.IsZero() || !claim.Forfeited.IsZero() {
			c.emit(depositClaimedEvent(deposit, claim))
		}
		c.emit(depositWithdrawnEvent(deposit))
		if deleted {
			c.emit(yieldFarmEvent(EventTypeYieldFarmDeleted, yield))
		}
		result = &WithdrawResult{Claim: claim, PoolID: deposit.PoolID, Shares: deposit.Shares.Clone()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ObserveClaim(result.Claim.Currency, result.Claim.Paid, result.Claim.Forfeited)
	}
	return result, nil
}

func (c *opContext) valueShares(global *GlobalFarm, yield *YieldFarm, shares *uint256.Int) (*uint256.Int, error) {
	if yield.State != YieldFarmActive {
		return nil, fmt.Errorf("%w: yield farm %d is %s", ErrIllegalStateTransition, yield.ID, yield.State)
	}
	valued, err := c.valuation.ValuedShares(yield.PoolID, shares)
	if err != nil {
		return nil, err
	}
	if valued == nil || valued.Lt(global.MinDeposit) {
		return nil, fmt.Errorf("%w: valued shares %s below %s", ErrBelowMinimumDeposit, amountOrZero(valued).Dec(), global.MinDeposit.Dec())
	}
	return valued, nil
}

// settle pays a deposit its pending reward and advances its entry snapshot.
// Explicit claims with nothing pending fail; implicit ones settle silently.
func (c *opContext) settle(global *GlobalFarm, yield *YieldFarm, deposit *Deposit, explicit bool) (*ClaimResult, error) {
	pending, err := computeClaim(deposit, yield, c.now)
	if err != nil {
		return nil, err
	}
	result := zeroClaim(global.RewardCurrency)
	if pending.raw.IsZero() {
		if explicit {
			return nil, fmt.Errorf("%w: deposit %d", ErrNothingToClaim, deposit.ID)
		}
		deposit.AccRewardPerShareEntry = yield.AccRewardPerShare
		return result, nil
	}

	if err := c.transfer(global.RewardCurrency, GlobalFarmPot(global.ID), deposit.Owner, pending.pay); err != nil {
		return nil, fmt.Errorf("pay deposit %d: %w", deposit.ID, err)
	}
	if err := global.recordPayout(pending.pay); err != nil {
		return nil, err
	}
	left, err := checkedSub(yield.LeftToDistribute, pending.pay)
	if err != nil {
		return nil, err
	}
	yield.LeftToDistribute = left
	if err := c.forfeit(global, yield, deposit, pending.forfeit); err != nil {
		return nil, err
	}
	deposit.AccRewardPerShareEntry = yield.AccRewardPerShare
	if err := deposit.recordClaim(pending.pay, pending.forfeit, c.now); err != nil {
		return nil, err
	}
	result.Paid, result.Forfeited = pending.pay, pending.forfeit
	return result, nil
}

// forfeit routes a loyalty penalty according to the configured policy. The
// amount is still counted in the yield farm's LeftToDistribute on entry.
func (c *opContext) forfeit(global *GlobalFarm, yield *YieldFarm, deposit *Deposit, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if c.params.ForfeitPolicy == ForfeitToYieldFarm {
		others := saturatingSub(yield.TotalValuedShares, deposit.ValuedShares)
		if !others.IsZero() {
			inc, err := perUnit(amount, others)
			if err != nil {
				return err
			}
			acc, err := yield.AccRewardPerShare.Add(inc)
			if err != nil {
				return err
			}
			yield.AccRewardPerShare = acc
			return nil
		}
	}
	left, err := checkedSub(yield.LeftToDistribute, amount)
	if err != nil {
		return err
	}
	yield.LeftToDistribute = left
	return global.recycle(amount)
}
