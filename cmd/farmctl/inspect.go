package main

import (
	"fmt"

	"farmchain/core/state"
)

type inspectQuery struct {
	globalFarm uint32
	yieldFarm  uint32
	deposit    uint64
}

type inspectReport struct {
	LastFarmID    uint32           `json:"lastFarmId"`
	LastDepositID uint64           `json:"lastDepositId"`
	GlobalFarms   []globalFarmView `json:"globalFarms,omitempty"`
	YieldFarms    []yieldFarmView  `json:"yieldFarms,omitempty"`
	Deposit       *depositView     `json:"deposit,omitempty"`
}

// inspectStore reads records without syncing them, so the report shows the
// state exactly as last committed.
func inspectStore(store *state.FarmStore, q inspectQuery, f amountFormatter) (*inspectReport, error) {
	report := &inspectReport{}
	err := store.View(func(tx *state.FarmTx) error {
		lastFarm, lastDeposit, err := tx.LastIssuedIDs()
		if err != nil {
			return err
		}
		report.LastFarmID, report.LastDepositID = lastFarm, lastDeposit

		if q.deposit != 0 {
			d, ok, err := tx.DepositGet(q.deposit)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("deposit %d not found", q.deposit)
			}
			view := f.deposit(d)
			report.Deposit = &view
		}

		ids := make([]uint32, 0, lastFarm)
		switch {
		case q.globalFarm != 0:
			ids = append(ids, q.globalFarm)
		case q.yieldFarm != 0:
			ids = append(ids, q.yieldFarm)
		case q.deposit == 0:
			for id := uint32(1); id <= lastFarm; id++ {
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			if q.yieldFarm == 0 {
				g, ok, err := tx.GlobalFarmGet(id)
				if err != nil {
					return err
				}
				if ok {
					report.GlobalFarms = append(report.GlobalFarms, f.globalFarm(g))
					continue
				}
			}
			if q.globalFarm == 0 {
				y, ok, err := tx.YieldFarmGet(id)
				if err != nil {
					return err
				}
				if ok {
					report.YieldFarms = append(report.YieldFarms, f.yieldFarm(y))
					continue
				}
			}
			if q.globalFarm != 0 || q.yieldFarm != 0 {
				return fmt.Errorf("farm %d not found", id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
