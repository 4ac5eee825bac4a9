package farming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoyaltyMultiplierWithoutCurveIsOne(t *testing.T) {
	for _, elapsed := range []uint64{0, 1, 1_000_000} {
		require.Zero(t, LoyaltyMultiplier(elapsed, nil).Cmp(FixedOne()))
	}
}

func TestLoyaltyMultiplierStartsAtInitialPercentage(t *testing.T) {
	curve := &LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 100}
	require.Equal(t, "0.5", LoyaltyMultiplier(0, curve).String())
	// (10 + 0.5*10) / (10 + 10)
	require.Equal(t, "0.75", LoyaltyMultiplier(10, &LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 10}).String())
}

func TestLoyaltyMultiplierBoundedAndNonDecreasing(t *testing.T) {
	curves := []*LoyaltyCurve{
		{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 100},
		{InitialRewardPercentage: FixedZero(), ScaleCoef: 1},
		{InitialRewardPercentage: FixedOne(), ScaleCoef: 7},
		{InitialRewardPercentage: mustFixed(t, "0.123456789"), ScaleCoef: 1 << 40, FullRampBlocks: 5_000},
	}
	for _, curve := range curves {
		prev := LoyaltyMultiplier(0, curve)
		require.Zero(t, prev.Cmp(curve.InitialRewardPercentage))
		for elapsed := uint64(1); elapsed < 10_000; elapsed += 37 {
			m := LoyaltyMultiplier(elapsed, curve)
			require.GreaterOrEqual(t, m.Cmp(curve.InitialRewardPercentage), 0)
			require.LessOrEqual(t, m.Cmp(FixedOne()), 0)
			require.GreaterOrEqual(t, m.Cmp(prev), 0, "elapsed %d", elapsed)
			prev = m
		}
		require.LessOrEqual(t, LoyaltyMultiplier(^uint64(0), curve).Cmp(FixedOne()), 0)
	}
}

func TestLoyaltyMultiplierFullRamp(t *testing.T) {
	curve := &LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "0.5"), ScaleCoef: 100, FullRampBlocks: 50}
	require.Equal(t, -1, LoyaltyMultiplier(49, curve).Cmp(FixedOne()))
	require.Zero(t, LoyaltyMultiplier(50, curve).Cmp(FixedOne()))
	require.Zero(t, LoyaltyMultiplier(51, curve).Cmp(FixedOne()))
}

func TestLoyaltyCurveValidate(t *testing.T) {
	var nilCurve *LoyaltyCurve
	require.NoError(t, nilCurve.Validate())
	require.NoError(t, (&LoyaltyCurve{InitialRewardPercentage: FixedOne(), ScaleCoef: 1}).Validate())
	require.ErrorIs(t, (&LoyaltyCurve{InitialRewardPercentage: mustFixed(t, "1.01"), ScaleCoef: 1}).Validate(), ErrInvalidParameters)
	require.ErrorIs(t, (&LoyaltyCurve{InitialRewardPercentage: FixedZero()}).Validate(), ErrInvalidParameters)
}
