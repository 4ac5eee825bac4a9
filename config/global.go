package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"farmchain/native/farming"
)

// EngineParams parses the configured farming section into runtime values.
func (f Farming) EngineParams() (farming.Params, error) {
	params := farming.DefaultParams()
	minTotal, err := parseUintAmount(f.MinTotalRewards)
	if err != nil {
		return params, fmt.Errorf("invalid farming.MinTotalRewards: %w", err)
	}
	params.MinTotalRewards = minTotal
	params.MinPlannedBlocks = f.MinPlannedBlocks
	params.MaxYieldFarmsPerGlobalFarm = f.MaxYieldFarmsPerGlobalFarm
	policy, err := farming.ParseForfeitPolicy(f.ForfeitPolicy)
	if err != nil {
		return params, fmt.Errorf("invalid farming.ForfeitPolicy: %w", err)
	}
	params.ForfeitPolicy = policy

	if f.DefaultScaleCoef > 0 {
		initial := f.DefaultInitialRewardPercentage
		if strings.TrimSpace(initial) == "" {
			initial = "0"
		}
		pct, err := parsePercentage(initial)
		if err != nil {
			return params, fmt.Errorf("invalid farming.DefaultInitialRewardPercentage: %w", err)
		}
		params.DefaultLoyalty = &farming.LoyaltyCurve{
			InitialRewardPercentage: pct,
			ScaleCoef:               f.DefaultScaleCoef,
			FullRampBlocks:          f.DefaultFullRampBlocks,
		}
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// parseUintAmount accepts plain integers as well as exponent notation such
// as "5e21", as long as the value is a non-negative integer.
func parseUintAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("amount must be an integer")
	}
	out, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits")
	}
	return out, nil
}

// parsePercentage converts a decimal fraction in [0, 1] into a Fixed.
func parsePercentage(value string) (farming.Fixed, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return farming.Fixed{}, err
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return farming.Fixed{}, fmt.Errorf("percentage %s outside [0, 1]", d.String())
	}
	return farming.ParseFixed(d.StringFixed(farming.FixedDecimals))
}
