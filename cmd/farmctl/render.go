package main

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"farmchain/native/bank"
	"farmchain/native/farming"
)

// amountFormatter renders base-unit integers as decimals with a fixed number
// of fractional digits.
type amountFormatter struct {
	decimals int32
}

func newAmountFormatter(decimals int) amountFormatter {
	if decimals < 0 {
		decimals = 0
	}
	return amountFormatter{decimals: int32(decimals)}
}

func (f amountFormatter) amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -f.decimals).String()
}

type loyaltyView struct {
	InitialRewardPercentage string `json:"initialRewardPercentage"`
	ScaleCoef               uint64 `json:"scaleCoef"`
	FullRampBlocks          uint64 `json:"fullRampBlocks,omitempty"`
}

type globalFarmView struct {
	ID                 uint32       `json:"id"`
	Owner              string       `json:"owner"`
	State              string       `json:"state"`
	RewardCurrency     string       `json:"rewardCurrency"`
	TotalRewards       string       `json:"totalRewards"`
	PlannedBlocks      uint64       `json:"plannedBlocks"`
	RewardPerBlock     string       `json:"rewardPerBlock"`
	MinDeposit         string       `json:"minDeposit"`
	Distributed        string       `json:"distributed"`
	Paid               string       `json:"paid"`
	Recycled           string       `json:"recycled"`
	Undistributed      string       `json:"undistributed"`
	AccRewardPerWeight string       `json:"accRewardPerWeight"`
	TotalWeight        string       `json:"totalWeight"`
	LiveYieldFarms     uint32       `json:"liveYieldFarms"`
	UpdatedAt          uint64       `json:"updatedAt"`
	Loyalty            *loyaltyView `json:"loyalty,omitempty"`
}

type yieldFarmView struct {
	ID                uint32       `json:"id"`
	GlobalFarmID      uint32       `json:"globalFarmId"`
	PoolID            string       `json:"poolId"`
	State             string       `json:"state"`
	MarkedForDeletion bool         `json:"markedForDeletion,omitempty"`
	Multiplier        string       `json:"multiplier"`
	TotalShares       string       `json:"totalShares"`
	TotalValuedShares string       `json:"totalValuedShares"`
	AccRewardPerShare string       `json:"accRewardPerShare"`
	LeftToDistribute  string       `json:"leftToDistribute"`
	DepositCount      uint64       `json:"depositCount"`
	UpdatedAt         uint64       `json:"updatedAt"`
	Loyalty           *loyaltyView `json:"loyalty,omitempty"`
}

type depositView struct {
	ID           uint64 `json:"id"`
	Owner        string `json:"owner"`
	GlobalFarmID uint32 `json:"globalFarmId"`
	YieldFarmID  uint32 `json:"yieldFarmId"`
	PoolID       string `json:"poolId"`
	Shares       string `json:"shares"`
	ValuedShares string `json:"valuedShares"`
	EnteredAt    uint64 `json:"enteredAt"`
	Claimed      string `json:"claimed"`
	Forfeited    string `json:"forfeited"`
}

type claimView struct {
	Currency  string `json:"currency"`
	Paid      string `json:"paid"`
	Forfeited string `json:"forfeited"`
}

func renderLoyalty(curve *farming.LoyaltyCurve) *loyaltyView {
	if curve == nil {
		return nil
	}
	return &loyaltyView{
		InitialRewardPercentage: curve.InitialRewardPercentage.String(),
		ScaleCoef:               curve.ScaleCoef,
		FullRampBlocks:          curve.FullRampBlocks,
	}
}

func (f amountFormatter) globalFarm(g *farming.GlobalFarm) globalFarmView {
	return globalFarmView{
		ID:                 g.ID,
		Owner:              bank.FormatAccount(g.Owner),
		State:              g.State.String(),
		RewardCurrency:     g.RewardCurrency,
		TotalRewards:       f.amount(g.TotalRewards),
		PlannedBlocks:      g.PlannedBlocks,
		RewardPerBlock:     f.amount(g.RewardPerBlock),
		MinDeposit:         f.amount(g.MinDeposit),
		Distributed:        f.amount(g.DistributedRewards),
		Paid:               f.amount(g.PaidRewards),
		Recycled:           f.amount(g.RecycledRewards),
		Undistributed:      f.amount(g.Undistributed()),
		AccRewardPerWeight: g.AccRewardPerWeight.String(),
		TotalWeight:        g.TotalWeight.String(),
		LiveYieldFarms:     g.LiveYieldFarms,
		UpdatedAt:          g.UpdatedAt,
		Loyalty:            renderLoyalty(g.Loyalty),
	}
}

func (f amountFormatter) yieldFarm(y *farming.YieldFarm) yieldFarmView {
	return yieldFarmView{
		ID:                y.ID,
		GlobalFarmID:      y.GlobalFarmID,
		PoolID:            y.PoolID,
		State:             y.State.String(),
		MarkedForDeletion: y.MarkedForDeletion,
		Multiplier:        y.Multiplier.String(),
		TotalShares:       f.amount(y.TotalShares),
		TotalValuedShares: f.amount(y.TotalValuedShares),
		AccRewardPerShare: y.AccRewardPerShare.String(),
		LeftToDistribute:  f.amount(y.LeftToDistribute),
		DepositCount:      y.DepositCount,
		UpdatedAt:         y.UpdatedAt,
		Loyalty:           renderLoyalty(y.Loyalty),
	}
}

func (f amountFormatter) deposit(d *farming.Deposit) depositView {
	return depositView{
		ID:           d.ID,
		Owner:        bank.FormatAccount(d.Owner),
		GlobalFarmID: d.GlobalFarmID,
		YieldFarmID:  d.YieldFarmID,
		PoolID:       d.PoolID,
		Shares:       f.amount(d.Shares),
		ValuedShares: f.amount(d.ValuedShares),
		EnteredAt:    d.EnteredAt,
		Claimed:      f.amount(d.ClaimedRewards),
		Forfeited:    f.amount(d.ForfeitedRewards),
	}
}

func (f amountFormatter) claim(c *farming.ClaimResult) claimView {
	return claimView{Currency: c.Currency, Paid: f.amount(c.Paid), Forfeited: f.amount(c.Forfeited)}
}
