package farming

import (
	"fmt"
)

// CreateYieldFarm attaches a new yield farm for a pool to a global farm and
// returns its id. Only one active yield farm may target a given pool within
// the same global farm.
func (e *Engine) CreateYieldFarm(caller [20]byte, globalFarmID uint32, p YieldFarmParams) (uint32, error) {
	var id uint32
	err := e.execute("create_yield_farm", func(c *opContext) error {
		global, err := c.globalFarm(globalFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureOwner(caller); err != nil {
			return err
		}
		if err := global.ensureActive(); err != nil {
			return err
		}
		if limit := c.params.MaxYieldFarmsPerGlobalFarm; limit > 0 && global.LiveYieldFarms >= limit {
			return fmt.Errorf("%w: global farm %d already has %d yield farms", ErrInvalidParameters, global.ID, global.LiveYieldFarms)
		}
		if err := c.ensurePoolFree(global.ID, p.PoolID); err != nil {
			return err
		}
		if err := c.sync(global, nil); err != nil {
			return err
		}
		next, err := c.tx.NextFarmID()
		if err != nil {
			return err
		}
		yield, err := newYieldFarm(next, global, p, c.now)
		if err != nil {
			return err
		}
		if err := global.attachWeight(yield.Multiplier); err != nil {
			return err
		}
		global.LiveYieldFarms++
		if err := c.tx.ActiveYieldFarmPut(global.ID, yield.PoolID, yield.ID); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(yieldFarmEvent(EventTypeYieldFarmCreated, yield))
		id = yield.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateYieldFarmMultiplier changes the weight of an active yield farm.
// Accrual up to the current block is settled at the old weight.
func (e *Engine) UpdateYieldFarmMultiplier(caller [20]byte, yieldFarmID uint32, multiplier Fixed) error {
	return e.execute("update_yield_farm", func(c *opContext) error {
		if multiplier.IsZero() {
			return fmt.Errorf("%w: multiplier must be positive", ErrInvalidParameters)
		}
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureOwner(caller); err != nil {
			return err
		}
		if err := global.ensureActive(); err != nil {
			return err
		}
		if yield.State != YieldFarmActive {
			return fmt.Errorf("%w: yield farm %d is %s", ErrIllegalStateTransition, yield.ID, yield.State)
		}
		if err := global.detachWeight(yield.Multiplier); err != nil {
			return err
		}
		if err := global.attachWeight(multiplier); err != nil {
			return err
		}
		yield.Multiplier = multiplier
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(yieldFarmEvent(EventTypeYieldFarmUpdated, yield))
		return nil
	})
}

// StopYieldFarm freezes a yield farm's accumulator and removes its weight
// from the parent. Deposits keep what they accrued up to now.
func (e *Engine) StopYieldFarm(caller [20]byte, yieldFarmID uint32) error {
	return e.execute("stop_yield_farm", func(c *opContext) error {
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureOwner(caller); err != nil {
			return err
		}
		if err := yield.stop(); err != nil {
			return err
		}
		if err := global.detachWeight(yield.Multiplier); err != nil {
			return err
		}
		if err := c.tx.ActiveYieldFarmDelete(global.ID, yield.PoolID); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(yieldFarmEvent(EventTypeYieldFarmStopped, yield))
		return nil
	})
}

// ResumeYieldFarm reactivates a stopped yield farm with the given multiplier.
// Nothing accrues for the blocks it spent stopped.
func (e *Engine) ResumeYieldFarm(caller [20]byte, yieldFarmID uint32, multiplier Fixed) error {
	return e.execute("resume_yield_farm", func(c *opContext) error {
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureOwner(caller); err != nil {
			return err
		}
		if err := global.ensureActive(); err != nil {
			return err
		}
		if err := yield.resume(global, multiplier); err != nil {
			return err
		}
		if err := c.ensurePoolFree(global.ID, yield.PoolID); err != nil {
			return err
		}
		if err := global.attachWeight(multiplier); err != nil {
			return err
		}
		if err := c.tx.ActiveYieldFarmPut(global.ID, yield.PoolID, yield.ID); err != nil {
			return err
		}
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(yieldFarmEvent(EventTypeYieldFarmResumed, yield))
		return nil
	})
}

// TerminateYieldFarm detaches a yield farm from its parent for good and
// returns its unclaimed rewards to the parent budget. Without force the farm
// must be empty and is deleted at once. With force a farm that still holds
// deposits is marked for deletion instead: its depositors can withdraw their
// shares but earn nothing more, and the farm is deleted once the last one
// leaves.
func (e *Engine) TerminateYieldFarm(caller [20]byte, yieldFarmID uint32, force bool) error {
	return e.execute("terminate_yield_farm", func(c *opContext) error {
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		if err := global.ensureOwner(caller); err != nil {
			return err
		}
		if yield.State == YieldFarmDeleted || yield.MarkedForDeletion {
			return fmt.Errorf("%w: yield farm %d is already terminated", ErrIllegalStateTransition, yield.ID)
		}
		if yield.DepositCount > 0 && !force {
			return fmt.Errorf("%w: yield farm %d still has %d deposits", ErrIllegalStateTransition, yield.ID, yield.DepositCount)
		}
		if yield.State == YieldFarmActive {
			if err := global.detachWeight(yield.Multiplier); err != nil {
				return err
			}
			if err := c.tx.ActiveYieldFarmDelete(global.ID, yield.PoolID); err != nil {
				return err
			}
		}
		if err := global.recycle(yield.drainUndistributed()); err != nil {
			return err
		}

		eventType := EventTypeYieldFarmDeleted
		if yield.DepositCount == 0 {
			if err := yield.delete(); err != nil {
				return err
			}
		} else {
			if yield.State == YieldFarmActive {
				if err := yield.stop(); err != nil {
					return err
				}
			}
			yield.MarkedForDeletion = true
			eventType = EventTypeYieldFarmTerminated
		}
		if global.LiveYieldFarms == 0 {
			return fmt.Errorf("%w: global farm %d live yield farm count underflow", ErrArithmetic, global.ID)
		}
		global.LiveYieldFarms--
		if err := c.putFarms(global, yield); err != nil {
			return err
		}
		c.emit(yieldFarmEvent(eventType, yield))
		return nil
	})
}

// SyncYieldFarm brings a yield farm and its parent up to the current block.
func (e *Engine) SyncYieldFarm(yieldFarmID uint32) error {
	return e.execute("sync_yield_farm", func(c *opContext) error {
		global, yield, err := c.farms(yieldFarmID)
		if err != nil {
			return err
		}
		return c.putFarms(global, yield)
	})
}

func (c *opContext) ensurePoolFree(globalFarmID uint32, poolID string) error {
	pool := normalizePoolID(poolID)
	existing, ok, err := c.tx.ActiveYieldFarmGet(globalFarmID, pool)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: pool %s already has active yield farm %d", ErrIllegalStateTransition, pool, existing)
	}
	return nil
}

func (c *opContext) putFarms(global *GlobalFarm, yield *YieldFarm) error {
	if err := c.tx.GlobalFarmPut(global); err != nil {
		return err
	}
	if yield == nil {
		return nil
	}
	return c.tx.YieldFarmPut(yield)
}
