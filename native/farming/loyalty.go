package farming

import (
	"fmt"

	"github.com/holiman/uint256"
)

// LoyaltyCurve configures the time-weighted payout multiplier of a yield farm.
//
// The multiplier after t blocks is (t + b·s) / (t + s) where b is the initial
// reward percentage and s the scale coefficient. It starts at exactly b and
// rises toward 1 without ever overshooting. When FullRampBlocks is non-zero the
// multiplier snaps to 1 once t reaches it.
type LoyaltyCurve struct {
	InitialRewardPercentage Fixed
	ScaleCoef               uint64
	FullRampBlocks          uint64
}

// Clone returns a copy of the curve.
func (c *LoyaltyCurve) Clone() *LoyaltyCurve {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate rejects curves whose output would leave [0, 1].
func (c *LoyaltyCurve) Validate() error {
	if c == nil {
		return nil
	}
	if c.InitialRewardPercentage.Cmp(FixedOne()) > 0 {
		return fmt.Errorf("%w: initial reward percentage above 1", ErrInvalidParameters)
	}
	if c.ScaleCoef == 0 {
		return fmt.Errorf("%w: loyalty scale coefficient must be positive", ErrInvalidParameters)
	}
	return nil
}

// LoyaltyMultiplier evaluates the curve for the supplied number of elapsed
// blocks. A nil curve disables the penalty and always yields 1.
func LoyaltyMultiplier(elapsed uint64, curve *LoyaltyCurve) Fixed {
	if curve == nil {
		return FixedOne()
	}
	if curve.FullRampBlocks > 0 && elapsed >= curve.FullRampBlocks {
		return FixedOne()
	}
	if elapsed == 0 {
		return curve.InitialRewardPercentage
	}
	// Operand widths (64-bit t and s, 1e18 scale) keep every product far below
	// 2^256, so the plain operations cannot wrap.
	t := uint256.NewInt(elapsed)
	s := uint256.NewInt(curve.ScaleCoef)

	num := new(uint256.Int).Mul(t, fixedUnit)
	num.Add(num, new(uint256.Int).Mul(&curve.InitialRewardPercentage.raw, s))
	den := new(uint256.Int).Add(t, s)

	m := FixedFromRaw(num.Div(num, den))
	if m.Cmp(FixedOne()) > 0 {
		return FixedOne()
	}
	return m
}
