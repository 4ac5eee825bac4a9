package farming

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// FixedDecimals is the number of decimal places carried by Fixed values.
const FixedDecimals = 18

var (
	fixedUnit        = uint256.NewInt(1_000_000_000_000_000_000)
	fixedUnitSquared = new(uint256.Int).Mul(fixedUnit, fixedUnit)
)

// Fixed is an unsigned fixed-point number scaled by 1e18 and backed by a
// 256-bit integer. Every arithmetic helper reports overflow through
// ErrArithmetic instead of wrapping, and every division rounds toward zero so
// the protocol never pays out more than it has accrued.
type Fixed struct {
	raw uint256.Int
}

// FixedZero returns the zero value.
func FixedZero() Fixed { return Fixed{} }

// FixedOne returns 1.0.
func FixedOne() Fixed {
	var f Fixed
	f.raw.Set(fixedUnit)
	return f
}

// FixedFromUint64 converts an integer into its fixed-point representation.
func FixedFromUint64(n uint64) Fixed {
	var f Fixed
	f.raw.Mul(uint256.NewInt(n), fixedUnit)
	return f
}

// FixedFromRaw wraps an already scaled integer.
func FixedFromRaw(raw *uint256.Int) Fixed {
	var f Fixed
	if raw != nil {
		f.raw.Set(raw)
	}
	return f
}

// FixedFromRational returns floor(num / den) in fixed-point form.
func FixedFromRational(num, den uint64) (Fixed, error) {
	if den == 0 {
		return Fixed{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	var f Fixed
	f.raw.Mul(uint256.NewInt(num), fixedUnit)
	f.raw.Div(&f.raw, uint256.NewInt(den))
	return f, nil
}

// ParseFixed parses a decimal string such as "0.5" or "12" into a Fixed.
// Digits beyond the 18th decimal place are truncated.
func ParseFixed(value string) (Fixed, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Fixed{}, fmt.Errorf("%w: empty fixed-point value", ErrInvalidParameters)
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "+") {
		return Fixed{}, fmt.Errorf("%w: invalid fixed-point value %q", ErrInvalidParameters, value)
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if len(frac) > FixedDecimals {
		frac = frac[:FixedDecimals]
	}
	frac += strings.Repeat("0", FixedDecimals-len(frac))
	if whole == "" {
		whole = "0"
	}
	raw, err := uint256.FromDecimal(whole + frac)
	if err != nil {
		return Fixed{}, fmt.Errorf("%w: invalid fixed-point value %q", ErrInvalidParameters, value)
	}
	return FixedFromRaw(raw), nil
}

// Raw returns a copy of the scaled integer.
func (f Fixed) Raw() *uint256.Int { return f.raw.Clone() }

// BigRaw returns the scaled integer as a big.Int for persistence.
func (f Fixed) BigRaw() *big.Int { return f.raw.ToBig() }

// IsZero reports whether f equals zero.
func (f Fixed) IsZero() bool { return f.raw.IsZero() }

// Cmp compares f and g and returns -1, 0 or +1.
func (f Fixed) Cmp(g Fixed) int { return f.raw.Cmp(&g.raw) }

// Add returns f + g.
func (f Fixed) Add(g Fixed) (Fixed, error) {
	var out Fixed
	if _, overflow := out.raw.AddOverflow(&f.raw, &g.raw); overflow {
		return Fixed{}, fmt.Errorf("%w: fixed addition overflow", ErrArithmetic)
	}
	return out, nil
}

// Sub returns f - g and fails when the result would be negative.
func (f Fixed) Sub(g Fixed) (Fixed, error) {
	var out Fixed
	if _, underflow := out.raw.SubOverflow(&f.raw, &g.raw); underflow {
		return Fixed{}, fmt.Errorf("%w: fixed subtraction underflow", ErrArithmetic)
	}
	return out, nil
}

// MulInt returns floor(f × n) as a plain integer amount.
func (f Fixed) MulInt(n *uint256.Int) (*uint256.Int, error) {
	if n == nil || n.IsZero() || f.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(&f.raw, n, fixedUnit)
	if overflow {
		return nil, fmt.Errorf("%w: fixed multiplication overflow", ErrArithmetic)
	}
	return out, nil
}

// MulFixedInt returns floor(f × g) truncated to an integer amount. It is used
// to turn a reward-per-weight delta and a weight into a reward amount.
func (f Fixed) MulFixedInt(g Fixed) (*uint256.Int, error) {
	if f.IsZero() || g.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(&f.raw, &g.raw, fixedUnitSquared)
	if overflow {
		return nil, fmt.Errorf("%w: fixed multiplication overflow", ErrArithmetic)
	}
	return out, nil
}

// String renders f as a decimal with trailing zeros removed.
func (f Fixed) String() string {
	whole := new(uint256.Int).Div(&f.raw, fixedUnit)
	frac := new(uint256.Int).Mod(&f.raw, fixedUnit)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	digits = strings.Repeat("0", FixedDecimals-len(digits)) + digits
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}

// perUnit returns floor(amount / units) as a Fixed, where units is a plain
// integer quantity such as total valued shares.
func perUnit(amount, units *uint256.Int) (Fixed, error) {
	if units == nil || units.IsZero() {
		return Fixed{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	var out Fixed
	if amount == nil || amount.IsZero() {
		return out, nil
	}
	if _, overflow := out.raw.MulDivOverflow(amount, fixedUnit, units); overflow {
		return Fixed{}, fmt.Errorf("%w: reward per share overflow", ErrArithmetic)
	}
	return out, nil
}

// perWeight returns floor(amount / weight) where weight is itself fixed-point.
func perWeight(amount *uint256.Int, weight Fixed) (Fixed, error) {
	if weight.IsZero() {
		return Fixed{}, fmt.Errorf("%w: division by zero weight", ErrArithmetic)
	}
	var out Fixed
	if amount == nil || amount.IsZero() {
		return out, nil
	}
	if _, overflow := out.raw.MulDivOverflow(amount, fixedUnitSquared, &weight.raw); overflow {
		return Fixed{}, fmt.Errorf("%w: reward per weight overflow", ErrArithmetic)
	}
	return out, nil
}

func checkedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(amountOrZero(a), amountOrZero(b))
	if overflow {
		return nil, fmt.Errorf("%w: addition overflow", ErrArithmetic)
	}
	return out, nil
}

func checkedSub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(amountOrZero(a), amountOrZero(b))
	if underflow {
		return nil, fmt.Errorf("%w: subtraction underflow", ErrArithmetic)
	}
	return out, nil
}

func checkedMulUint64(a *uint256.Int, n uint64) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(amountOrZero(a), uint256.NewInt(n))
	if overflow {
		return nil, fmt.Errorf("%w: multiplication overflow", ErrArithmetic)
	}
	return out, nil
}

// saturatingSub returns max(a-b, 0). It is only used for budget caps.
func saturatingSub(a, b *uint256.Int) *uint256.Int {
	a, b = amountOrZero(a), amountOrZero(b)
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

func minAmount(a, b *uint256.Int) *uint256.Int {
	a, b = amountOrZero(a), amountOrZero(b)
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
