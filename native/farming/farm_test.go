package farming

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func testGlobalFarm(t *testing.T, total uint64, blocks uint64) *GlobalFarm {
	t.Helper()
	farm, err := newGlobalFarm(1, [20]byte{1}, GlobalFarmParams{
		RewardCurrency: "hdx",
		TotalRewards:   uint256.NewInt(total),
		PlannedBlocks:  blocks,
		MinDeposit:     uint256.NewInt(1),
	}, DefaultParams(), 0)
	require.NoError(t, err)
	return farm
}

func TestNewGlobalFarmValidation(t *testing.T) {
	params := DefaultParams()
	base := GlobalFarmParams{
		RewardCurrency: "HDX",
		TotalRewards:   uint256.NewInt(1_000_000),
		PlannedBlocks:  100,
		MinDeposit:     uint256.NewInt(10),
	}

	farm, err := newGlobalFarm(1, [20]byte{1}, base, params, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), farm.RewardPerBlock.Uint64())
	require.Equal(t, GlobalFarmActive, farm.State)
	require.Equal(t, uint64(5), farm.UpdatedAt)

	invalid := []func(p *GlobalFarmParams){
		func(p *GlobalFarmParams) { p.PlannedBlocks = 0 },
		func(p *GlobalFarmParams) { p.TotalRewards = uint256.NewInt(999) },
		func(p *GlobalFarmParams) { p.TotalRewards = uint256.NewInt(1_000); p.PlannedBlocks = 2_000 },
		func(p *GlobalFarmParams) { p.MinDeposit = nil },
		func(p *GlobalFarmParams) { p.RewardCurrency = " " },
		func(p *GlobalFarmParams) { p.Loyalty = &LoyaltyCurve{InitialRewardPercentage: FixedOne()} },
	}
	for i, mutate := range invalid {
		p := base
		mutate(&p)
		_, err := newGlobalFarm(1, [20]byte{1}, p, params, 0)
		require.ErrorIs(t, err, ErrInvalidParameters, "case %d", i)
	}
}

func TestGlobalFarmSyncIsIdempotentWithinBlock(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.NoError(t, farm.attachWeight(FixedOne()))

	require.NoError(t, farm.sync(10))
	first := farm.Clone()
	require.NoError(t, farm.sync(10))
	require.Equal(t, first, farm)
	require.Equal(t, uint64(100_000), farm.DistributedRewards.Uint64())
	require.Equal(t, "100000", farm.AccRewardPerWeight.String())
}

func TestGlobalFarmWithoutWeightPreservesBudget(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.NoError(t, farm.sync(50))
	require.True(t, farm.DistributedRewards.IsZero())
	require.Equal(t, uint64(50), farm.UpdatedAt)

	require.NoError(t, farm.attachWeight(FixedOne()))
	require.NoError(t, farm.sync(60))
	require.Equal(t, uint64(100_000), farm.DistributedRewards.Uint64())
}

func TestGlobalFarmSyncCapsAtBudget(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_003, 100)
	require.NoError(t, farm.attachWeight(FixedOne()))
	require.NoError(t, farm.sync(1_000))
	require.Equal(t, uint64(1_000_003), farm.DistributedRewards.Uint64())
	require.True(t, farm.Undistributed().IsZero())

	require.NoError(t, farm.sync(2_000))
	require.Equal(t, uint64(1_000_003), farm.DistributedRewards.Uint64())
}

func TestGlobalFarmSyncSaturatesOnOverflow(t *testing.T) {
	total := new(uint256.Int).SetAllOne()
	farm, err := newGlobalFarm(1, [20]byte{1}, GlobalFarmParams{
		RewardCurrency: "HDX",
		TotalRewards:   total,
		PlannedBlocks:  1,
		MinDeposit:     uint256.NewInt(1),
	}, DefaultParams(), 0)
	require.NoError(t, err)
	require.NoError(t, farm.attachWeight(FixedFromRaw(new(uint256.Int).SetAllOne())))

	require.NoError(t, farm.sync(3))
	require.Zero(t, farm.DistributedRewards.Cmp(total))
}

func TestGlobalFarmStoppedDoesNotAccrue(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.NoError(t, farm.attachWeight(FixedOne()))
	require.NoError(t, farm.sync(10))
	require.NoError(t, farm.stop())
	require.NoError(t, farm.sync(20))
	require.Equal(t, uint64(100_000), farm.DistributedRewards.Uint64())

	require.ErrorIs(t, farm.stop(), ErrIllegalStateTransition)
}

func TestGlobalFarmRecycle(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.NoError(t, farm.attachWeight(FixedOne()))
	require.NoError(t, farm.sync(10))
	require.NoError(t, farm.recycle(uint256.NewInt(400)))
	require.Equal(t, uint64(99_600), farm.DistributedRewards.Uint64())
	require.Equal(t, uint64(400), farm.RecycledRewards.Uint64())
	require.ErrorIs(t, farm.recycle(uint256.NewInt(1_000_000)), ErrArithmetic)
}

func TestGlobalFarmTerminate(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.ErrorIs(t, farm.terminate(), ErrIllegalStateTransition)

	farm.LiveYieldFarms = 1
	require.NoError(t, farm.stop())
	require.ErrorIs(t, farm.terminate(), ErrIllegalStateTransition)

	farm.LiveYieldFarms = 0
	require.NoError(t, farm.terminate())
	require.Equal(t, GlobalFarmTerminated, farm.State)

	before := farm.Clone()
	require.NoError(t, farm.sync(500))
	require.Equal(t, before, farm)
}

func TestGlobalFarmOwnership(t *testing.T) {
	farm := testGlobalFarm(t, 1_000_000, 100)
	require.NoError(t, farm.ensureOwner([20]byte{1}))
	require.ErrorIs(t, farm.ensureOwner([20]byte{2}), ErrUnauthorized)
}

func TestYieldFarmSyncDistributesByMultiplier(t *testing.T) {
	global := testGlobalFarm(t, 1_000_000, 100)
	a, err := newYieldFarm(2, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne()}, 0)
	require.NoError(t, err)
	b, err := newYieldFarm(3, global, YieldFarmParams{PoolID: "b", Multiplier: FixedFromUint64(3)}, 0)
	require.NoError(t, err)
	require.NoError(t, global.attachWeight(a.Multiplier))
	require.NoError(t, global.attachWeight(b.Multiplier))
	require.NoError(t, a.stake(uint256.NewInt(100), uint256.NewInt(100)))
	require.NoError(t, b.stake(uint256.NewInt(100), uint256.NewInt(100)))

	require.NoError(t, global.sync(10))
	require.NoError(t, a.sync(global, 10))
	require.NoError(t, b.sync(global, 10))

	require.Equal(t, uint64(25_000), a.LeftToDistribute.Uint64())
	require.Equal(t, uint64(75_000), b.LeftToDistribute.Uint64())
	require.Equal(t, "250", a.AccRewardPerShare.String())
	require.Equal(t, "750", b.AccRewardPerShare.String())
	require.Equal(t, "A", a.PoolID)
}

func TestYieldFarmWithoutSharesRecyclesIncrement(t *testing.T) {
	global := testGlobalFarm(t, 1_000_000, 100)
	yield, err := newYieldFarm(2, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne()}, 0)
	require.NoError(t, err)
	require.NoError(t, global.attachWeight(yield.Multiplier))

	require.NoError(t, global.sync(10))
	require.NoError(t, yield.sync(global, 10))
	require.True(t, yield.AccRewardPerShare.IsZero())
	require.True(t, yield.LeftToDistribute.IsZero())
	require.True(t, global.DistributedRewards.IsZero())
	require.Equal(t, uint64(100_000), global.RecycledRewards.Uint64())
	require.Zero(t, yield.GlobalAccSnapshot.Cmp(global.AccRewardPerWeight))
}

func TestStoppedYieldFarmFreezesAccumulator(t *testing.T) {
	global := testGlobalFarm(t, 1_000_000, 100)
	yield, err := newYieldFarm(2, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne()}, 0)
	require.NoError(t, err)
	require.NoError(t, global.attachWeight(yield.Multiplier))
	require.NoError(t, yield.stake(uint256.NewInt(10), uint256.NewInt(10)))
	require.NoError(t, yield.stop())

	require.NoError(t, global.sync(10))
	require.NoError(t, yield.sync(global, 10))
	require.True(t, yield.AccRewardPerShare.IsZero())

	require.NoError(t, yield.resume(global, FixedFromUint64(2)))
	require.Zero(t, yield.GlobalAccSnapshot.Cmp(global.AccRewardPerWeight))
	require.ErrorIs(t, yield.resume(global, FixedOne()), ErrIllegalStateTransition)
}

func TestYieldFarmUnstakeDeletesMarkedFarm(t *testing.T) {
	global := testGlobalFarm(t, 1_000_000, 100)
	yield, err := newYieldFarm(2, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne()}, 0)
	require.NoError(t, err)
	require.NoError(t, yield.stake(uint256.NewInt(10), uint256.NewInt(10)))
	require.NoError(t, yield.stake(uint256.NewInt(5), uint256.NewInt(5)))
	require.NoError(t, yield.stop())
	yield.MarkedForDeletion = true

	deleted, err := yield.unstake(uint256.NewInt(10), uint256.NewInt(10))
	require.NoError(t, err)
	require.False(t, deleted)
	deleted, err = yield.unstake(uint256.NewInt(5), uint256.NewInt(5))
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, YieldFarmDeleted, yield.State)

	_, err = yield.unstake(uint256.NewInt(1), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrIllegalStateTransition)
}

func TestYieldFarmLoyaltyDefaults(t *testing.T) {
	global := testGlobalFarm(t, 1_000_000, 100)
	global.Loyalty = &LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 10}

	inherited, err := newYieldFarm(2, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne()}, 0)
	require.NoError(t, err)
	require.Equal(t, global.Loyalty, inherited.Loyalty)

	disabled, err := newYieldFarm(3, global, YieldFarmParams{PoolID: "a", Multiplier: FixedOne(), NoLoyalty: true}, 0)
	require.NoError(t, err)
	require.Nil(t, disabled.Loyalty)

	_, err = newYieldFarm(4, global, YieldFarmParams{PoolID: "a"}, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)
	_, err = newYieldFarm(4, global, YieldFarmParams{Multiplier: FixedOne()}, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestComputeClaimAppliesLoyaltyAndCap(t *testing.T) {
	yield := &YieldFarm{
		AccRewardPerShare: FixedFromUint64(500),
		LeftToDistribute:  uint256.NewInt(1_000_000),
		Loyalty:           &LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 10},
	}
	deposit := &Deposit{ValuedShares: uint256.NewInt(100), EnteredAt: 5}

	claim, err := computeClaim(deposit, yield, 15)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), claim.raw.Uint64())
	require.Equal(t, uint64(37_500), claim.pay.Uint64())
	require.Equal(t, uint64(12_500), claim.forfeit.Uint64())

	yield.LeftToDistribute = uint256.NewInt(40_000)
	claim, err = computeClaim(deposit, yield, 15)
	require.NoError(t, err)
	require.Equal(t, uint64(40_000), claim.raw.Uint64())

	deposit.AccRewardPerShareEntry = FixedFromUint64(501)
	_, err = computeClaim(deposit, yield, 15)
	require.ErrorIs(t, err, ErrArithmetic)
}

func TestStateTransitions(t *testing.T) {
	_, err := GlobalFarmTerminated.Transition(GlobalFarmActive)
	require.ErrorIs(t, err, ErrIllegalStateTransition)
	_, err = GlobalFarmActive.Transition(GlobalFarmTerminated)
	require.ErrorIs(t, err, ErrIllegalStateTransition)
	next, err := GlobalFarmActive.Transition(GlobalFarmStopped)
	require.NoError(t, err)
	require.Equal(t, GlobalFarmStopped, next)

	_, err = YieldFarmDeleted.Transition(YieldFarmActive)
	require.ErrorIs(t, err, ErrIllegalStateTransition)
	next2, err := YieldFarmStopped.Transition(YieldFarmActive)
	require.NoError(t, err)
	require.Equal(t, YieldFarmActive, next2)
	require.False(t, YieldFarmState(9).Valid())
	require.Equal(t, "unknown", GlobalFarmState(9).String())
}

func TestParseForfeitPolicy(t *testing.T) {
	policy, err := ParseForfeitPolicy("")
	require.NoError(t, err)
	require.Equal(t, ForfeitToGlobalFarm, policy)
	policy, err = ParseForfeitPolicy(" Yield ")
	require.NoError(t, err)
	require.Equal(t, ForfeitToYieldFarm, policy)
	_, err = ParseForfeitPolicy("burn")
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestPotAccountsAreDistinct(t *testing.T) {
	require.NotEqual(t, GlobalFarmPot(1), GlobalFarmPot(2))
	require.NotEqual(t, YieldFarmPot(1, 2), YieldFarmPot(2, 1))
	require.Equal(t, YieldFarmPot(1, 2), YieldFarmPot(1, 2))
}
