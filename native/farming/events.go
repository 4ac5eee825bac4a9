package farming

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"farmchain/core/events"
	"farmchain/core/types"
)

const (
	EventTypeGlobalFarmCreated    = "farming.global.created"
	EventTypeGlobalFarmStopped    = "farming.global.stopped"
	EventTypeGlobalFarmTerminated = "farming.global.terminated"

	EventTypeYieldFarmCreated    = "farming.yield.created"
	EventTypeYieldFarmStopped    = "farming.yield.stopped"
	EventTypeYieldFarmResumed    = "farming.yield.resumed"
	EventTypeYieldFarmUpdated    = "farming.yield.updated"
	EventTypeYieldFarmTerminated = "farming.yield.terminated"
	EventTypeYieldFarmDeleted    = "farming.yield.deleted"

	EventTypeDepositOpened      = "farming.deposit.opened"
	EventTypeDepositClaimed     = "farming.deposit.claimed"
	EventTypeDepositRedeposited = "farming.deposit.redeposited"
	EventTypeDepositWithdrawn   = "farming.deposit.withdrawn"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func globalFarmCreatedEvent(g *GlobalFarm) *types.Event {
	return &types.Event{
		Type: EventTypeGlobalFarmCreated,
		Attributes: map[string]string{
			"globalFarmId":   formatFarmID(g.ID),
			"owner":          hexAddr(g.Owner),
			"currency":       g.RewardCurrency,
			"totalRewards":   g.TotalRewards.Dec(),
			"plannedBlocks":  strconv.FormatUint(g.PlannedBlocks, 10),
			"rewardPerBlock": g.RewardPerBlock.Dec(),
		},
	}
}

func globalFarmStoppedEvent(g *GlobalFarm) *types.Event {
	return &types.Event{
		Type: EventTypeGlobalFarmStopped,
		Attributes: map[string]string{
			"globalFarmId":  formatFarmID(g.ID),
			"undistributed": g.Undistributed().Dec(),
		},
	}
}

func globalFarmTerminatedEvent(g *GlobalFarm, refund *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeGlobalFarmTerminated,
		Attributes: map[string]string{
			"globalFarmId": formatFarmID(g.ID),
			"owner":        hexAddr(g.Owner),
			"refund":       amountOrZero(refund).Dec(),
		},
	}
}

func yieldFarmEvent(eventType string, y *YieldFarm) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"globalFarmId": formatFarmID(y.GlobalFarmID),
			"yieldFarmId":  formatFarmID(y.ID),
			"poolId":       y.PoolID,
			"multiplier":   y.Multiplier.String(),
			"state":        y.State.String(),
		},
	}
}

func depositOpenedEvent(d *Deposit) *types.Event {
	return &types.Event{
		Type: EventTypeDepositOpened,
		Attributes: map[string]string{
			"depositId":    formatDepositID(d.ID),
			"owner":        hexAddr(d.Owner),
			"yieldFarmId":  formatFarmID(d.YieldFarmID),
			"shares":       d.Shares.Dec(),
			"valuedShares": d.ValuedShares.Dec(),
		},
	}
}

func depositClaimedEvent(d *Deposit, claim *ClaimResult) *types.Event {
	return &types.Event{
		Type: EventTypeDepositClaimed,
		Attributes: map[string]string{
			"depositId":   formatDepositID(d.ID),
			"owner":       hexAddr(d.Owner),
			"yieldFarmId": formatFarmID(d.YieldFarmID),
			"currency":    claim.Currency,
			"paid":        claim.Paid.Dec(),
			"forfeited":   claim.Forfeited.Dec(),
		},
	}
}

func depositRedepositedEvent(d *Deposit, from uint32) *types.Event {
	return &types.Event{
		Type: EventTypeDepositRedeposited,
		Attributes: map[string]string{
			"depositId":       formatDepositID(d.ID),
			"owner":           hexAddr(d.Owner),
			"fromYieldFarmId": formatFarmID(from),
			"toYieldFarmId":   formatFarmID(d.YieldFarmID),
			"valuedShares":    d.ValuedShares.Dec(),
		},
	}
}

func depositWithdrawnEvent(d *Deposit) *types.Event {
	return &types.Event{
		Type: EventTypeDepositWithdrawn,
		Attributes: map[string]string{
			"depositId":   formatDepositID(d.ID),
			"owner":       hexAddr(d.Owner),
			"yieldFarmId": formatFarmID(d.YieldFarmID),
			"shares":      d.Shares.Dec(),
		},
	}
}

func formatFarmID(id uint32) string { return strconv.FormatUint(uint64(id), 10) }

func formatDepositID(id uint64) string { return strconv.FormatUint(id, 10) }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
