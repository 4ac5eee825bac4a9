package farming

import (
	"fmt"
)

// CreateGlobalFarm funds a new global farm from the owner's balance and
// returns its id.
func (e *Engine) CreateGlobalFarm(owner [20]byte, p GlobalFarmParams) (uint32, error) {
	var id uint32
	var created *GlobalFarm
	err := e.execute("create_global_farm", func(c *opContext) error {
		if p.Loyalty == nil && c.params.DefaultLoyalty != nil {
			p.Loyalty = c.params.DefaultLoyalty.Clone()
		}
		next, err := c.tx.NextFarmID()
		if err != nil {
			return err
		}
		farm, err := newGlobalFarm(next, owner, p, c.params, c.now)
		if err != nil {
			return err
		}
		if err := c.transfer(farm.RewardCurrency, owner, GlobalFarmPot(farm.ID), farm.TotalRewards); err != nil {
			return fmt.Errorf("fund global farm %d: %w", farm.ID, err)
		}
		if err := c.tx.GlobalFarmPut(farm); err != nil {
			return err
		}
		c.emit(globalFarmCreatedEvent(farm))
		id, created = farm.ID, farm
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("global farm created", "globalFarmId", id, "currency", created.RewardCurrency,
		"totalRewards", created.TotalRewards.Dec(), "plannedBlocks", created.PlannedBlocks)
	return id, nil
}

// StopGlobalFarm halts accrual. Rewards already accrued stay claimable.
func (e *Engine) StopGlobalFarm(caller [20]byte, id uint32) error {
	return e.execute("stop_global_farm", func(c *opContext) error {
		farm, err := c.globalFarm(id)
		if err != nil {
			return err
		}
		if err := farm.ensureOwner(caller); err != nil {
			return err
		}
		if err := c.sync(farm, nil); err != nil {
			return err
		}
		if err := farm.stop(); err != nil {
			return err
		}
		if err := c.tx.GlobalFarmPut(farm); err != nil {
			return err
		}
		c.emit(globalFarmStoppedEvent(farm))
		return nil
	})
}

// TerminateGlobalFarm closes a stopped farm without live yield farms and
// returns whatever reward balance is left in its pot to the owner. Stopped
// yield farms still count as live and must be terminated first.
func (e *Engine) TerminateGlobalFarm(caller [20]byte, id uint32) error {
	return e.execute("terminate_global_farm", func(c *opContext) error {
		farm, err := c.globalFarm(id)
		if err != nil {
			return err
		}
		if err := farm.ensureOwner(caller); err != nil {
			return err
		}
		if err := c.sync(farm, nil); err != nil {
			return err
		}
		if err := farm.terminate(); err != nil {
			return err
		}
		pot := GlobalFarmPot(farm.ID)
		refund, err := c.tx.BalanceOf(farm.RewardCurrency, pot)
		if err != nil {
			return err
		}
		if err := c.transfer(farm.RewardCurrency, pot, farm.Owner, refund); err != nil {
			return fmt.Errorf("refund global farm %d: %w", farm.ID, err)
		}
		if err := c.tx.GlobalFarmPut(farm); err != nil {
			return err
		}
		c.emit(globalFarmTerminatedEvent(farm, refund))
		return nil
	})
}

// SyncGlobalFarm brings a global farm's accumulator up to the current block.
// Anyone may call it.
func (e *Engine) SyncGlobalFarm(id uint32) error {
	return e.execute("sync_global_farm", func(c *opContext) error {
		farm, err := c.globalFarm(id)
		if err != nil {
			return err
		}
		if err := c.sync(farm, nil); err != nil {
			return err
		}
		return c.tx.GlobalFarmPut(farm)
	})
}
