package farming

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Params captures the module wide limits applied by the engine.
type Params struct {
	// MinTotalRewards is the smallest budget a global farm may be created with.
	MinTotalRewards *uint256.Int
	// MinPlannedBlocks is the shortest distribution period accepted.
	MinPlannedBlocks uint64
	// MaxYieldFarmsPerGlobalFarm bounds the live yield farms under a single
	// global farm. Zero disables the limit.
	MaxYieldFarmsPerGlobalFarm uint32
	ForfeitPolicy              ForfeitPolicy
	// DefaultLoyalty applies to global farms created without a curve.
	DefaultLoyalty *LoyaltyCurve
}

// DefaultParams returns the limits used when no configuration is supplied.
func DefaultParams() Params {
	return Params{
		MinTotalRewards:            uint256.NewInt(1_000),
		MinPlannedBlocks:           1,
		MaxYieldFarmsPerGlobalFarm: 32,
		ForfeitPolicy:              ForfeitToGlobalFarm,
	}
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	clone.MinTotalRewards = cloneAmount(p.MinTotalRewards)
	clone.DefaultLoyalty = p.DefaultLoyalty.Clone()
	return clone
}

// Validate ensures the parameters are internally consistent.
func (p Params) Validate() error {
	if p.MinPlannedBlocks == 0 {
		return fmt.Errorf("%w: minimum planned blocks must be positive", ErrInvalidParameters)
	}
	if err := p.DefaultLoyalty.Validate(); err != nil {
		return err
	}
	switch p.ForfeitPolicy {
	case ForfeitToGlobalFarm, ForfeitToYieldFarm:
	default:
		return fmt.Errorf("%w: unknown forfeit policy %d", ErrInvalidParameters, p.ForfeitPolicy)
	}
	return nil
}
