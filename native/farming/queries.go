package farming

// GlobalFarm returns the stored global farm record.
func (e *Engine) GlobalFarm(id uint32) (*GlobalFarm, error) {
	var out *GlobalFarm
	err := e.view(func(c *opContext) error {
		farm, err := c.globalFarm(id)
		out = farm
		return err
	})
	return out, err
}

// YieldFarm returns the stored yield farm record.
func (e *Engine) YieldFarm(id uint32) (*YieldFarm, error) {
	var out *YieldFarm
	err := e.view(func(c *opContext) error {
		farm, err := c.yieldFarm(id)
		out = farm
		return err
	})
	return out, err
}

// Deposit returns the stored deposit record.
func (e *Engine) Deposit(id uint64) (*Deposit, error) {
	var out *Deposit
	err := e.view(func(c *opContext) error {
		deposit, err := c.deposit(id)
		out = deposit
		return err
	})
	return out, err
}

// DepositsOf lists the deposits an owner holds in a yield farm, ordered by id.
func (e *Engine) DepositsOf(owner [20]byte, yieldFarmID uint32) ([]*Deposit, error) {
	var out []*Deposit
	err := e.view(func(c *opContext) error {
		ids, err := c.tx.DepositIDsByOwner(owner, yieldFarmID)
		if err != nil {
			return err
		}
		out = make([]*Deposit, 0, len(ids))
		for _, id := range ids {
			deposit, err := c.deposit(id)
			if err != nil {
				return err
			}
			out = append(out, deposit)
		}
		return nil
	})
	return out, err
}

// PendingRewards reports what a claim would pay and forfeit at the current
// block. Nothing is persisted.
func (e *Engine) PendingRewards(depositID uint64) (*ClaimResult, error) {
	var out *ClaimResult
	err := e.view(func(c *opContext) error {
		deposit, err := c.deposit(depositID)
		if err != nil {
			return err
		}
		global, yield, err := c.farms(deposit.YieldFarmID)
		if err != nil {
			return err
		}
		pending, err := computeClaim(deposit, yield, c.now)
		if err != nil {
			return err
		}
		out = &ClaimResult{Currency: global.RewardCurrency, Paid: pending.pay, Forfeited: pending.forfeit}
		return nil
	})
	return out, err
}

// LoyaltyMultiplier evaluates a yield farm's loyalty curve for a deposit that
// entered at enteredAt, as of block now.
func (e *Engine) LoyaltyMultiplier(yieldFarmID uint32, enteredAt, now uint64) (Fixed, error) {
	var out Fixed
	err := e.view(func(c *opContext) error {
		yield, err := c.yieldFarm(yieldFarmID)
		if err != nil {
			return err
		}
		var elapsed uint64
		if now > enteredAt {
			elapsed = now - enteredAt
		}
		out = LoyaltyMultiplier(elapsed, yield.Loyalty)
		return nil
	})
	return out, err
}
